// Package client contains the operator-side building blocks for studiosign.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering the
//     signing flow (OpenSession, RequestCode, SubmitSignature, Verify, Abort)
//     and the registry operations (certificates, listings, history, paper
//     consents, subject upserts).
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the operator access token via an interceptor, and
//     maps gRPC status codes back to the shared sentinel errors.
//
// # Error Handling
//
// Domain failures come back as the sentinels of package common and can be
// matched with errors.Is. Transport conditions are exposed as ErrUnavailable
// and ErrUnauthorized.
//
// See Also
//
//   - Interface:  Client
//   - gRPC impl:  GRPCClient
//   - Errors:     ErrUnavailable, ErrUnauthorized
package client
