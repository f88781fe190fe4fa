package grpc

import (
	"context"

	"github.com/dmitrijs2005/studiosign/internal/api"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusError maps a domain error to its gRPC status. Anything outside the
// taxonomy is logged and reported as an internal error.
func (s *GRPCServer) statusError(ctx context.Context, op string, err error) error {
	if st, ok := api.Status(err); ok {
		return st.Err()
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) OpenSigningSession(ctx context.Context, req *api.OpenSessionRequest) (*api.OpenSessionResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, s.statusError(ctx, "open session", err)
	}

	o, err := s.consent.OpenSigningSession(ctx, p, req.SubjectID, kind, req.Resign)
	if err != nil {
		return nil, s.statusError(ctx, "open session", err)
	}

	resp := &api.OpenSessionResponse{Token: o.Token, Title: o.Title, Text: o.Text}
	if o.Session != nil {
		v := toSessionView(*o.Session)
		resp.Session = &v
	}
	if o.Existing != nil {
		sum := toSummary(*o.Existing)
		resp.Existing = &sum
	}
	return resp, nil
}

func (s *GRPCServer) RequestCode(ctx context.Context, req *api.SessionRequest) (*api.SessionView, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.consent.RequestCode(ctx, p, req.SessionID, req.Token)
	if err != nil {
		return nil, s.statusError(ctx, "request code", err)
	}
	out := toSessionView(v)
	return &out, nil
}

func (s *GRPCServer) SubmitSignature(ctx context.Context, req *api.SubmitSignatureRequest) (*api.SessionView, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.consent.SubmitSignature(ctx, p, req.SessionID, req.Token, toStrokes(req.Strokes), req.Device)
	if err != nil {
		return nil, s.statusError(ctx, "submit signature", err)
	}
	out := toSessionView(v)
	return &out, nil
}

func (s *GRPCServer) Verify(ctx context.Context, req *api.VerifyRequest) (*api.VerifyResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	v, sum, err := s.consent.Verify(ctx, p, req.SessionID, req.Token, req.Code)
	if err != nil {
		return nil, s.statusError(ctx, "verify", err)
	}
	resp := &api.VerifyResponse{Session: toSessionView(v)}
	if sum != nil {
		rec := toSummary(*sum)
		resp.Record = &rec
	}
	return resp, nil
}

func (s *GRPCServer) Abort(ctx context.Context, req *api.SessionRequest) (*api.SessionView, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.consent.Abort(ctx, p, req.SessionID, req.Token)
	if err != nil {
		return nil, s.statusError(ctx, "abort", err)
	}
	out := toSessionView(v)
	return &out, nil
}

func (s *GRPCServer) DownloadCertificate(ctx context.Context, req *api.CertificateRequest) (*api.CertificateResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, s.statusError(ctx, "download certificate", err)
	}
	cert, err := s.consent.DownloadCertificate(ctx, p, req.SubjectID, kind)
	if err != nil {
		return nil, s.statusError(ctx, "download certificate", err)
	}
	return &api.CertificateResponse{
		Filename:    cert.Filename,
		ContentType: cert.ContentType,
		Data:        cert.Data,
		URL:         cert.URL,
	}, nil
}

func (s *GRPCServer) ListConsents(ctx context.Context, req *api.ListConsentsRequest) (*api.ListConsentsResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.consent.ListConsents(ctx, p, req.SubjectID)
	if err != nil {
		return nil, s.statusError(ctx, "list consents", err)
	}
	return &api.ListConsentsResponse{Items: toSummaries(items)}, nil
}

func (s *GRPCServer) ConsentHistory(ctx context.Context, req *api.HistoryRequest) (*api.HistoryResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, s.statusError(ctx, "consent history", err)
	}
	events, err := s.consent.ConsentHistory(ctx, p, req.SubjectID, kind)
	if err != nil {
		return nil, s.statusError(ctx, "consent history", err)
	}
	return &api.HistoryResponse{Events: toSummaries(events)}, nil
}

func (s *GRPCServer) RecordPaperConsent(ctx context.Context, req *api.PaperConsentRequest) (*api.ConsentSummary, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, s.statusError(ctx, "record paper consent", err)
	}
	sum, err := s.consent.RecordPaperConsent(ctx, p, req.SubjectID, kind, req.AcceptedAt)
	if err != nil {
		return nil, s.statusError(ctx, "record paper consent", err)
	}
	out := toSummary(*sum)
	return &out, nil
}

func (s *GRPCServer) UpsertSubject(ctx context.Context, req *api.UpsertSubjectRequest) (*api.Subject, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	subj, err := s.consent.UpsertSubject(ctx, p, req.SubjectID, req.Fields)
	if err != nil {
		return nil, s.statusError(ctx, "upsert subject", err)
	}
	out := toSubject(*subj)
	return &out, nil
}

func (s *GRPCServer) UpsertTenant(ctx context.Context, req *api.UpsertTenantRequest) (*api.Tenant, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.consent.UpsertTenant(ctx, p, req.Fields)
	if err != nil {
		return nil, s.statusError(ctx, "upsert tenant", err)
	}
	out := toTenant(*t)
	return &out, nil
}
