package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/api"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	SetAccessToken(token string)

	OpenSession(ctx context.Context, subjectID, kind string, resign bool) (*api.OpenSessionResponse, error)
	RequestCode(ctx context.Context, sessionID, token string) (*api.SessionView, error)
	SubmitSignature(ctx context.Context, sessionID, token string, strokes [][]api.Point, device string) (*api.SessionView, error)
	Verify(ctx context.Context, sessionID, token, code string) (*api.VerifyResponse, error)
	Abort(ctx context.Context, sessionID, token string) error

	DownloadCertificate(ctx context.Context, subjectID, kind string) (*api.CertificateResponse, error)
	ListConsents(ctx context.Context, subjectID string) ([]api.ConsentSummary, error)
	History(ctx context.Context, subjectID, kind string) ([]api.ConsentSummary, error)
	RecordPaperConsent(ctx context.Context, subjectID, kind string, acceptedAt time.Time) (*api.ConsentSummary, error)
	UpsertSubject(ctx context.Context, subjectID string, fields map[string]string) (*api.Subject, error)
	UpsertTenant(ctx context.Context, fields map[string]string) (*api.Tenant, error)
}
