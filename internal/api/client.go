package api

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls ConsentService over a connection. Every call uses the JSON
// content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenSigningSession(ctx context.Context, in *OpenSessionRequest, opts ...grpc.CallOption) (*OpenSessionResponse, error) {
	return invoke[OpenSessionResponse](ctx, c.cc, MethodOpenSigningSession, in, opts)
}

func (c *Client) RequestCode(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionView, error) {
	return invoke[SessionView](ctx, c.cc, MethodRequestCode, in, opts)
}

func (c *Client) SubmitSignature(ctx context.Context, in *SubmitSignatureRequest, opts ...grpc.CallOption) (*SessionView, error) {
	return invoke[SessionView](ctx, c.cc, MethodSubmitSignature, in, opts)
}

func (c *Client) Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error) {
	return invoke[VerifyResponse](ctx, c.cc, MethodVerify, in, opts)
}

func (c *Client) Abort(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionView, error) {
	return invoke[SessionView](ctx, c.cc, MethodAbort, in, opts)
}

func (c *Client) DownloadCertificate(ctx context.Context, in *CertificateRequest, opts ...grpc.CallOption) (*CertificateResponse, error) {
	return invoke[CertificateResponse](ctx, c.cc, MethodDownloadCertificate, in, opts)
}

func (c *Client) ListConsents(ctx context.Context, in *ListConsentsRequest, opts ...grpc.CallOption) (*ListConsentsResponse, error) {
	return invoke[ListConsentsResponse](ctx, c.cc, MethodListConsents, in, opts)
}

func (c *Client) ConsentHistory(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c.cc, MethodConsentHistory, in, opts)
}

func (c *Client) RecordPaperConsent(ctx context.Context, in *PaperConsentRequest, opts ...grpc.CallOption) (*ConsentSummary, error) {
	return invoke[ConsentSummary](ctx, c.cc, MethodRecordPaperConsent, in, opts)
}

func (c *Client) UpsertSubject(ctx context.Context, in *UpsertSubjectRequest, opts ...grpc.CallOption) (*Subject, error) {
	return invoke[Subject](ctx, c.cc, MethodUpsertSubject, in, opts)
}

func (c *Client) UpsertTenant(ctx context.Context, in *UpsertTenantRequest, opts ...grpc.CallOption) (*Tenant, error) {
	return invoke[Tenant](ctx, c.cc, MethodUpsertTenant, in, opts)
}
