// Package consent is the orchestrator of the signing workflow. It opens
// signing sessions, drives the one-time code challenge, writes the consent
// record when the challenge succeeds and assembles certificates on demand.
package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/archive"
	"github.com/dmitrijs2005/studiosign/internal/server/assembly"
	"github.com/dmitrijs2005/studiosign/internal/server/audit"
	"github.com/dmitrijs2005/studiosign/internal/server/auth"
	"github.com/dmitrijs2005/studiosign/internal/server/capture"
	"github.com/dmitrijs2005/studiosign/internal/server/channels"
	"github.com/dmitrijs2005/studiosign/internal/server/device"
	"github.com/dmitrijs2005/studiosign/internal/server/legaltext"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/server/otp"
	"github.com/dmitrijs2005/studiosign/internal/server/registry"
	"github.com/dmitrijs2005/studiosign/internal/timex"
	"github.com/google/uuid"
)

// Deps are the collaborators of a Service. Archive is optional; the
// remaining fields default when left zero, except Registry, Sessions,
// Channel, Sealer and Engine which are required.
type Deps struct {
	Registry   registry.Registry
	Sessions   *otp.Registry
	Channel    otp.Channel
	Address    channels.AddressFunc
	Classifier device.Classifier
	Sealer     *audit.Sealer
	Engine     *assembly.Engine
	Archive    archive.Store
	Pad        capture.Options
	Now        func() time.Time
}

type Service struct {
	registry   registry.Registry
	sessions   *otp.Registry
	channel    otp.Channel
	address    channels.AddressFunc
	classifier device.Classifier
	sealer     *audit.Sealer
	engine     *assembly.Engine
	archive    archive.Store
	pad        capture.Options
	now        func() time.Time
	log        logging.Logger
}

func NewService(d Deps, log logging.Logger) (*Service, error) {
	if d.Registry == nil || d.Sessions == nil || d.Channel == nil || d.Sealer == nil || d.Engine == nil {
		return nil, errors.New("consent: missing required dependency")
	}
	s := &Service{
		registry:   d.Registry,
		sessions:   d.Sessions,
		channel:    d.Channel,
		address:    d.Address,
		classifier: d.Classifier,
		sealer:     d.Sealer,
		engine:     d.Engine,
		archive:    d.Archive,
		pad:        d.Pad,
		now:        d.Now,
		log:        log.With("module", "consent"),
	}
	if s.address == nil {
		s.address = channels.AddressFor(channels.KindSMS)
	}
	if s.classifier == nil {
		s.classifier = device.Default()
	}
	if s.pad == (capture.Options{}) {
		s.pad = capture.DefaultOptions()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Opened is the result of OpenSigningSession. Exactly one of Session and
// Existing is set.
type Opened struct {
	Session  *otp.View
	Token    string
	Existing *models.ConsentSummary

	Title string
	Text  string
}

// Certificate is a downloadable certificate. URL is set when the document
// was archived.
type Certificate struct {
	*assembly.Document
	ArchiveKey string
	URL        string
}

// OpenSigningSession starts a signing attempt for the subject and kind.
// When the pair is already signed and resign is false, the existing
// acceptance is returned together with the text it was given on, and no
// session is opened.
func (s *Service) OpenSigningSession(ctx context.Context, p auth.Principal, subjectID string, kind models.DocumentKind, resign bool) (*Opened, error) {
	subject, err := s.registry.GetSubject(ctx, p.TenantID, subjectID)
	if err != nil {
		return nil, err
	}

	if !resign {
		rec, err := s.registry.GetConsent(ctx, p.TenantID, subjectID, kind)
		switch {
		case err == nil && rec.Accepted:
			text, err := legaltext.Render(rec.TextVersion, kind, rec.TextParams)
			if err != nil {
				return nil, err
			}
			sum := rec.Summary()
			return &Opened{Existing: &sum, Title: legaltext.Title(kind), Text: text}, nil
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}
	}

	tenant, err := s.tenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	params := models.TextParams{TenantName: tenant.Name, Subject: subject.Fields()}
	text, err := legaltext.RenderCurrent(kind, params)
	if err != nil {
		return nil, err
	}

	key := otp.Key{TenantID: p.TenantID, SubjectID: subjectID, Kind: kind}
	session := s.sessions.Open(ctx, key, s.address(*subject))
	session.Present(otp.Presented{Version: legaltext.Version, Params: params})

	v := session.View()
	s.log.Info(ctx, "signing session opened", "session_id", v.ID, "subject_id", subjectID, "kind", kind, "operator_id", p.OperatorID)
	return &Opened{Session: &v, Token: session.Token(), Title: legaltext.Title(kind), Text: text}, nil
}

// RequestCode sends a one-time code to the subject's contact point.
func (s *Service) RequestCode(ctx context.Context, p auth.Principal, sessionID, token string) (otp.View, error) {
	session, err := s.session(p, sessionID, token)
	if err != nil {
		return otp.View{}, err
	}
	if err := session.RequestCode(ctx, s.channel); err != nil {
		s.log.Warn(ctx, "code request failed", "session_id", sessionID, "error", err)
		return session.View(), err
	}
	s.log.Info(ctx, "code sent", "session_id", sessionID)
	return session.View(), nil
}

// SubmitSignature rasterises the strokes and attaches them to the session.
// descriptor is the capture environment, such as a user agent string.
func (s *Service) SubmitSignature(ctx context.Context, p auth.Principal, sessionID, token string, strokes [][]capture.Point, descriptor string) (otp.View, error) {
	session, err := s.session(p, sessionID, token)
	if err != nil {
		return otp.View{}, err
	}

	pad := capture.NewPad(s.pad)
	if err := pad.Replay(strokes); err != nil {
		return session.View(), err
	}
	image, err := pad.ExportPNG()
	if err != nil {
		return session.View(), err
	}

	class := s.classifier.Classify(descriptor)
	if err := session.SubmitSignature(image, class); err != nil {
		return session.View(), err
	}
	s.log.Debug(ctx, "signature captured", "session_id", sessionID, "device", class, "bytes", len(image))
	return session.View(), nil
}

// Verify checks the code. On success the consent record is written and the
// session is discarded. A session whose attempts are exhausted, or whose
// record could not be written, is discarded too.
func (s *Service) Verify(ctx context.Context, p auth.Principal, sessionID, token, code string) (otp.View, *models.ConsentSummary, error) {
	session, err := s.session(p, sessionID, token)
	if err != nil {
		return otp.View{}, nil, err
	}

	ev, err := session.Verify(code)
	if err != nil {
		if errors.Is(err, common.ErrAttemptsExhausted) {
			s.sessions.Discard(sessionID)
		}
		s.log.Info(ctx, "verification failed", "session_id", sessionID, "error", err)
		return session.View(), nil, err
	}
	defer s.sessions.Discard(sessionID)

	key := session.Key()
	pres := session.Presented()
	rec, err := models.NewSignedRecord(key.TenantID, key.SubjectID, key.Kind, ev, pres.Version, pres.Params)
	if err != nil {
		return session.View(), nil, err
	}
	if err := s.sealer.Apply(rec); err != nil {
		return session.View(), nil, fmt.Errorf("seal record: %w", err)
	}
	if err := s.registry.SaveConsent(ctx, rec); err != nil {
		s.log.Error(ctx, "consent record not written", "session_id", sessionID, "error", err)
		return session.View(), nil, fmt.Errorf("save consent: %w", err)
	}

	sum := rec.Summary()
	s.log.Info(ctx, "consent signed", "record_id", rec.ID, "subject_id", key.SubjectID, "kind", key.Kind, "device", rec.DeviceClass)
	return session.View(), &sum, nil
}

// Abort cancels the session. Nothing is written.
func (s *Service) Abort(ctx context.Context, p auth.Principal, sessionID, token string) (otp.View, error) {
	session, err := s.session(p, sessionID, token)
	if err != nil {
		return otp.View{}, err
	}
	if err := session.Abort(); err != nil {
		return session.View(), err
	}
	s.sessions.Discard(sessionID)
	s.log.Info(ctx, "signing session aborted", "session_id", sessionID)
	return session.View(), nil
}

// DownloadCertificate assembles the certificate of the current record of
// the pair. The audit seal is checked first.
func (s *Service) DownloadCertificate(ctx context.Context, p auth.Principal, subjectID string, kind models.DocumentKind) (*Certificate, error) {
	subject, err := s.registry.GetSubject(ctx, p.TenantID, subjectID)
	if err != nil {
		return nil, err
	}
	rec, err := s.registry.GetConsent(ctx, p.TenantID, subjectID, kind)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrNotSigned
	}
	if err != nil {
		return nil, err
	}
	if err := s.sealer.Verify(rec); err != nil {
		s.log.Error(ctx, "audit seal mismatch", "record_id", rec.ID, "subject_id", subjectID, "kind", kind)
		return nil, err
	}
	tenant, err := s.tenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	doc, err := s.engine.Assemble(ctx, assembly.Input{Tenant: *tenant, Subject: *subject, Record: rec})
	if err != nil {
		return nil, err
	}
	cert := &Certificate{Document: doc}

	if s.archive != nil {
		key, url, err := s.archive.Put(ctx, p.TenantID, doc.Filename, doc.ContentType, doc.Data)
		if err != nil {
			s.log.Warn(ctx, "certificate not archived", "record_id", rec.ID, "error", err)
		}
		cert.ArchiveKey, cert.URL = key, url
	}
	return cert, nil
}

// ListConsents returns the current records of a subject without images.
func (s *Service) ListConsents(ctx context.Context, p auth.Principal, subjectID string) ([]models.ConsentSummary, error) {
	if _, err := s.registry.GetSubject(ctx, p.TenantID, subjectID); err != nil {
		return nil, err
	}
	return s.registry.ListSummaries(ctx, p.TenantID, subjectID)
}

// ConsentHistory returns every signing event of the pair, oldest first.
func (s *Service) ConsentHistory(ctx context.Context, p auth.Principal, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error) {
	if _, err := s.registry.GetSubject(ctx, p.TenantID, subjectID); err != nil {
		return nil, err
	}
	return s.registry.History(ctx, p.TenantID, subjectID, kind)
}

// RecordPaperConsent enters a legacy paper acceptance. Admin only.
func (s *Service) RecordPaperConsent(ctx context.Context, p auth.Principal, subjectID string, kind models.DocumentKind, acceptedAt time.Time) (*models.ConsentSummary, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	subject, err := s.registry.GetSubject(ctx, p.TenantID, subjectID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	now := timex.DBPrecision(s.now())
	params := models.TextParams{TenantName: tenant.Name, Subject: subject.Fields()}
	rec, err := models.NewPaperRecord(p.TenantID, subjectID, kind, timex.DBPrecision(acceptedAt), now, legaltext.Version, params)
	if err != nil {
		return nil, err
	}
	if err := s.sealer.Apply(rec); err != nil {
		return nil, fmt.Errorf("seal record: %w", err)
	}
	if err := s.registry.SaveConsent(ctx, rec); err != nil {
		return nil, fmt.Errorf("save consent: %w", err)
	}

	sum := rec.Summary()
	s.log.Info(ctx, "paper consent recorded", "record_id", rec.ID, "subject_id", subjectID, "kind", kind, "operator_id", p.OperatorID)
	return &sum, nil
}

// UpsertSubject applies a field patch to a subject, creating it when the
// id is new. Admin only. Acceptance flags cannot be patched. The tenant
// must exist, see UpsertTenant.
func (s *Service) UpsertSubject(ctx context.Context, p auth.Principal, subjectID string, fields map[string]string) (*models.Subject, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	if _, err := s.registry.GetTenant(ctx, p.TenantID); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", p.TenantID, err)
	}

	now := timex.DBPrecision(s.now())
	if subjectID == "" {
		subjectID = uuid.NewString()
	}
	current, err := s.registry.GetSubject(ctx, p.TenantID, subjectID)
	if errors.Is(err, common.ErrorNotFound) {
		current, err = &models.Subject{ID: subjectID, TenantID: p.TenantID, CreatedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}

	next, err := current.WithFields(fields)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	if err := s.registry.SaveSubject(ctx, &next); err != nil {
		return nil, err
	}
	return s.registry.GetSubject(ctx, p.TenantID, next.ID)
}

// UpsertTenant applies a field patch to the tenant of p, creating it on
// first use. Admin only.
func (s *Service) UpsertTenant(ctx context.Context, p auth.Principal, fields map[string]string) (*models.Tenant, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	current, err := s.registry.GetTenant(ctx, p.TenantID)
	if errors.Is(err, common.ErrorNotFound) {
		current, err = &models.Tenant{ID: p.TenantID}, nil
	}
	if err != nil {
		return nil, err
	}

	next, err := current.WithFields(fields)
	if err != nil {
		return nil, err
	}
	if err := s.registry.SaveTenant(ctx, &next); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "tenant saved", "tenant_id", next.ID, "operator_id", p.OperatorID)
	return s.registry.GetTenant(ctx, p.TenantID)
}

func (s *Service) session(p auth.Principal, sessionID, token string) (*otp.Session, error) {
	session, err := s.sessions.Get(sessionID, token)
	if err != nil {
		return nil, err
	}
	if session.Key().TenantID != p.TenantID {
		return nil, common.ErrSessionNotFound
	}
	return session, nil
}

// tenant falls back to a bare tenant when the registry does not know it;
// its name then renders as a placeholder.
func (s *Service) tenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	t, err := s.registry.GetTenant(ctx, tenantID)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.Tenant{ID: tenantID}, nil
	}
	return t, err
}
