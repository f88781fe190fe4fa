package api

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusErrors pairs domain errors with their codes. Order matters: an
// exhausted verification wraps a mismatch and must match first.
var statusErrors = []struct {
	err  error
	code codes.Code
}{
	{common.ErrAttemptsExhausted, codes.ResourceExhausted},
	{common.ErrCodeMismatch, codes.InvalidArgument},
	{common.ErrEmptySignature, codes.InvalidArgument},
	{common.ErrNoActiveStroke, codes.InvalidArgument},
	{common.ErrUnknownDocumentKind, codes.InvalidArgument},
	{common.ErrIncorrectField, codes.InvalidArgument},
	{common.ErrMissingChannelAddress, codes.FailedPrecondition},
	{common.ErrInvalidState, codes.FailedPrecondition},
	{common.ErrCodeExpired, codes.FailedPrecondition},
	{common.ErrNotSigned, codes.FailedPrecondition},
	{common.ErrSessionSuperseded, codes.FailedPrecondition},
	{common.ErrDispatchInFlight, codes.Aborted},
	{common.ErrChannelDispatch, codes.Unavailable},
	{common.ErrSessionNotFound, codes.NotFound},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrInconsistentRecord, codes.DataLoss},
	{common.ErrTamperedRecord, codes.DataLoss},
	{common.ErrorForbidden, codes.PermissionDenied},
	{common.ErrorUnauthorized, codes.PermissionDenied},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
}

// Status converts a domain error into a gRPC status. ok is false for
// errors outside the taxonomy.
func Status(err error) (st *status.Status, ok bool) {
	for _, e := range statusErrors {
		if errors.Is(err, e.err) {
			return status.New(e.code, err.Error()), true
		}
	}
	return nil, false
}

// FromStatus turns a status returned by the server back into the domain
// error it was built from, keeping the server message. Unknown statuses
// are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, e := range statusErrors {
		if st.Code() == e.code && strings.Contains(st.Message(), e.err.Error()) {
			if st.Message() == e.err.Error() {
				return e.err
			}
			return &remoteError{sentinel: e.err, msg: st.Message()}
		}
	}
	return err
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
