package consents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/dbx"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) (*models.ConsentRecord, error) {
	query :=
		`SELECT id, tenant_id, subject_id, kind, method, accepted, accepted_at,
		 signature_image, signature_ts, device_class, channel_address,
		 text_version, text_params, audit_digest, created_at
		 FROM consents
		 WHERE tenant_id = $1 AND subject_id = $2 AND kind = $3
		 `

	rec := &models.ConsentRecord{}
	var (
		acceptedAt, signatureTS sql.NullTime
		device                  sql.NullString
		params                  []byte
	)
	err := r.db.QueryRowContext(ctx, query, tenantID, subjectID, string(kind)).Scan(
		&rec.ID, &rec.TenantID, &rec.SubjectID, &rec.Kind, &rec.Method, &rec.Accepted, &acceptedAt,
		&rec.SignatureImage, &signatureTS, &device, &rec.ChannelAddress,
		&rec.TextVersion, &params, &rec.AuditDigest, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(params, &rec.TextParams); err != nil {
		return nil, fmt.Errorf("%w: text params: %w", common.ErrInconsistentRecord, err)
	}
	rec.AcceptedAt = dbx.TimeOf(acceptedAt)
	rec.SignatureTimestamp = dbx.TimeOf(signatureTS)
	rec.DeviceClass = models.DeviceClass(device.String)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.ConsentRecord) error {
	query :=
		`INSERT INTO consents (tenant_id, subject_id, kind, id, method, accepted, accepted_at,
		 signature_image, signature_ts, device_class, channel_address,
		 text_version, text_params, audit_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (tenant_id, subject_id, kind) DO UPDATE SET
		 id = EXCLUDED.id, method = EXCLUDED.method, accepted = EXCLUDED.accepted,
		 accepted_at = EXCLUDED.accepted_at, signature_image = EXCLUDED.signature_image,
		 signature_ts = EXCLUDED.signature_ts, device_class = EXCLUDED.device_class,
		 channel_address = EXCLUDED.channel_address, text_version = EXCLUDED.text_version,
		 text_params = EXCLUDED.text_params, audit_digest = EXCLUDED.audit_digest,
		 created_at = EXCLUDED.created_at
		 `

	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendEvent(ctx context.Context, rec *models.ConsentRecord) error {
	query :=
		`INSERT INTO consent_events (tenant_id, subject_id, kind, record_id, method, accepted, accepted_at,
		 signature_image, signature_ts, device_class, channel_address,
		 text_version, text_params, audit_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 `

	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func recordArgs(rec *models.ConsentRecord) ([]any, error) {
	params, err := json.Marshal(rec.TextParams)
	if err != nil {
		return nil, fmt.Errorf("encode text params: %w", err)
	}
	return []any{
		rec.TenantID, rec.SubjectID, string(rec.Kind), rec.ID, string(rec.Method), rec.Accepted, dbx.NullTime(rec.AcceptedAt),
		dbx.NullBytes(rec.SignatureImage), dbx.NullTime(rec.SignatureTimestamp), dbx.NullString(string(rec.DeviceClass)), rec.ChannelAddress,
		rec.TextVersion, params, rec.AuditDigest, rec.CreatedAt,
	}, nil
}

func (r *PostgresRepository) ListSummaries(ctx context.Context, tenantID, subjectID string) ([]models.ConsentSummary, error) {
	query :=
		`SELECT id, tenant_id, subject_id, kind, method, accepted, accepted_at,
		 COALESCE(octet_length(signature_image), 0) > 0, device_class, channel_address
		 FROM consents
		 WHERE tenant_id = $1 AND subject_id = $2
		 ORDER BY kind
		 `

	return r.summaries(ctx, query, tenantID, subjectID)
}

func (r *PostgresRepository) History(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error) {
	query :=
		`SELECT record_id, tenant_id, subject_id, kind, method, accepted, accepted_at,
		 COALESCE(octet_length(signature_image), 0) > 0, device_class, channel_address
		 FROM consent_events
		 WHERE tenant_id = $1 AND subject_id = $2 AND kind = $3
		 ORDER BY seq
		 `

	return r.summaries(ctx, query, tenantID, subjectID, string(kind))
}

func (r *PostgresRepository) summaries(ctx context.Context, query string, args ...any) ([]models.ConsentSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.ConsentSummary
	for rows.Next() {
		var (
			s          models.ConsentSummary
			acceptedAt sql.NullTime
			device     sql.NullString
			address    string
		)
		if err := rows.Scan(&s.RecordID, &s.TenantID, &s.SubjectID, &s.Kind, &s.Method, &s.Accepted, &acceptedAt,
			&s.HasSignature, &device, &address); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.AcceptedAt = dbx.TimeOf(acceptedAt)
		s.DeviceClass = models.DeviceClass(device.String)
		s.MaskedAddress = common.MaskAddress(address)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
