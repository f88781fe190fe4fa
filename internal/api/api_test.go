package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	b, err := c.Marshal(&VerifyRequest{SessionID: "s", Token: "t", Code: "482913"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","token":"t","code":"482913"}`, string(b))

	var out VerifyRequest
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, "482913", out.Code)
}

func TestServiceDesc(t *testing.T) {
	assert.Equal(t, ServiceName, ServiceDesc.ServiceName)
	assert.Len(t, ServiceDesc.Methods, 11)
	for _, m := range ServiceDesc.Methods {
		assert.NotNil(t, m.Handler, m.MethodName)
	}
}

func TestStatus_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrMissingChannelAddress, codes.FailedPrecondition},
		{fmt.Errorf("%w: gateway", common.ErrChannelDispatch), codes.Unavailable},
		{common.ErrCodeMismatch, codes.InvalidArgument},
		{fmt.Errorf("%w: %w", common.ErrAttemptsExhausted, common.ErrCodeMismatch), codes.ResourceExhausted},
		{common.ErrEmptySignature, codes.InvalidArgument},
		{common.ErrTamperedRecord, codes.DataLoss},
		{fmt.Errorf("wrap: %w", common.ErrInconsistentRecord), codes.DataLoss},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrorForbidden, codes.PermissionDenied},
	}
	for _, tc := range cases {
		st, ok := Status(tc.err)
		require.True(t, ok, tc.err.Error())
		assert.Equal(t, tc.code, st.Code(), tc.err.Error())
	}

	_, ok := Status(errors.New("boom"))
	assert.False(t, ok)
}

func TestFromStatus_RoundTrip(t *testing.T) {
	for _, want := range []error{
		common.ErrMissingChannelAddress,
		fmt.Errorf("%w: gateway down", common.ErrChannelDispatch),
		fmt.Errorf("%w: %w", common.ErrAttemptsExhausted, common.ErrCodeMismatch),
		common.ErrNotSigned,
	} {
		st, ok := Status(want)
		require.True(t, ok)
		got := FromStatus(st.Err())
		assert.Equal(t, want.Error(), got.Error())
		assert.True(t, errors.Is(got, firstSentinel(want)), want.Error())
	}

	plain := status.Error(codes.Internal, "internal error")
	assert.Equal(t, plain, FromStatus(plain))
	assert.Nil(t, FromStatus(nil))
}

func firstSentinel(err error) error {
	for _, e := range statusErrors {
		if errors.Is(err, e.err) {
			return e.err
		}
	}
	return nil
}
