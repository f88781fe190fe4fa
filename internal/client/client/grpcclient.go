package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/api"
	"github.com/dmitrijs2005/studiosign/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// consentAPI is the subset of api.Client used here.
type consentAPI interface {
	OpenSigningSession(ctx context.Context, in *api.OpenSessionRequest, opts ...grpc.CallOption) (*api.OpenSessionResponse, error)
	RequestCode(ctx context.Context, in *api.SessionRequest, opts ...grpc.CallOption) (*api.SessionView, error)
	SubmitSignature(ctx context.Context, in *api.SubmitSignatureRequest, opts ...grpc.CallOption) (*api.SessionView, error)
	Verify(ctx context.Context, in *api.VerifyRequest, opts ...grpc.CallOption) (*api.VerifyResponse, error)
	Abort(ctx context.Context, in *api.SessionRequest, opts ...grpc.CallOption) (*api.SessionView, error)
	DownloadCertificate(ctx context.Context, in *api.CertificateRequest, opts ...grpc.CallOption) (*api.CertificateResponse, error)
	ListConsents(ctx context.Context, in *api.ListConsentsRequest, opts ...grpc.CallOption) (*api.ListConsentsResponse, error)
	ConsentHistory(ctx context.Context, in *api.HistoryRequest, opts ...grpc.CallOption) (*api.HistoryResponse, error)
	RecordPaperConsent(ctx context.Context, in *api.PaperConsentRequest, opts ...grpc.CallOption) (*api.ConsentSummary, error)
	UpsertSubject(ctx context.Context, in *api.UpsertSubjectRequest, opts ...grpc.CallOption) (*api.Subject, error)
	UpsertTenant(ctx context.Context, in *api.UpsertTenantRequest, opts ...grpc.CallOption) (*api.Tenant, error)
}

type healthChecker interface {
	Check(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (*healthpb.HealthCheckResponse, error)
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      consentAPI
	health      healthChecker

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := s.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewConsentClient connects to the studiosign server at endpointURL. A zero
// timeout disables per-call deadlines.
func NewConsentClient(endpointURL, accessToken string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, timeout: timeout}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewClient(conn)
	s.health = healthpb.NewHealthClient(conn)
	return nil
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) OpenSession(ctx context.Context, subjectID, kind string, resign bool) (*api.OpenSessionResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.OpenSigningSession(ctx, &api.OpenSessionRequest{SubjectID: subjectID, Kind: kind, Resign: resign})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) RequestCode(ctx context.Context, sessionID, token string) (*api.SessionView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.RequestCode(ctx, &api.SessionRequest{SessionID: sessionID, Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) SubmitSignature(ctx context.Context, sessionID, token string, strokes [][]api.Point, device string) (*api.SessionView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.SubmitSignature(ctx, &api.SubmitSignatureRequest{SessionID: sessionID, Token: token, Strokes: strokes, Device: device})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Verify(ctx context.Context, sessionID, token, code string) (*api.VerifyResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Verify(ctx, &api.VerifyRequest{SessionID: sessionID, Token: token, Code: code})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Abort(ctx context.Context, sessionID, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.Abort(ctx, &api.SessionRequest{SessionID: sessionID, Token: token}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) DownloadCertificate(ctx context.Context, subjectID, kind string) (*api.CertificateResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.DownloadCertificate(ctx, &api.CertificateRequest{SubjectID: subjectID, Kind: kind})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ListConsents(ctx context.Context, subjectID string) ([]api.ConsentSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.ListConsents(ctx, &api.ListConsentsRequest{SubjectID: subjectID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Items, nil
}

func (s *GRPCClient) History(ctx context.Context, subjectID, kind string) ([]api.ConsentSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.ConsentHistory(ctx, &api.HistoryRequest{SubjectID: subjectID, Kind: kind})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Events, nil
}

func (s *GRPCClient) RecordPaperConsent(ctx context.Context, subjectID, kind string, acceptedAt time.Time) (*api.ConsentSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.RecordPaperConsent(ctx, &api.PaperConsentRequest{SubjectID: subjectID, Kind: kind, AcceptedAt: acceptedAt})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) UpsertSubject(ctx context.Context, subjectID string, fields map[string]string) (*api.Subject, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.UpsertSubject(ctx, &api.UpsertSubjectRequest{SubjectID: subjectID, Fields: fields})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) UpsertTenant(ctx context.Context, fields map[string]string) (*api.Tenant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.UpsertTenant(ctx, &api.UpsertTenantRequest{Fields: fields})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// mapError resolves domain sentinels first, then transport conditions.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if mapped := api.FromStatus(err); mapped != err {
		return mapped
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("rpc error: %w", err)
	}
}

var _ Client = (*GRPCClient)(nil)
