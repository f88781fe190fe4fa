// Package common contains shared constants and sentinel errors used across
// studiosign components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// operator access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MaskedRune replaces hidden characters of contact addresses.
const MaskedRune = '*'
