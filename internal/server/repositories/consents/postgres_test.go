package consents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var at = time.Date(2026, 3, 1, 10, 0, 0, 123000, time.UTC)

func signed() *models.ConsentRecord {
	return &models.ConsentRecord{
		ID: "r1", TenantID: "t1", SubjectID: "s1",
		Kind: models.KindPrivacy, Method: models.MethodDigital,
		Accepted: true, AcceptedAt: at,
		SignatureImage: []byte{1, 2}, SignatureTimestamp: at, DeviceClass: models.DeviceTablet,
		ChannelAddress: "+393331234567",
		TextVersion:    "legaltext-v1",
		TextParams:     models.TextParams{TenantName: "Studio"},
		AuditDigest:    "abc",
		CreatedAt:      at,
	}
}

const getQuery = `(?s)^SELECT\s+id,\s*tenant_id,.*FROM\s+consents\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+subject_id\s*=\s*\$2\s+AND\s+kind\s*=\s*\$3\s*$`

var recordColumns = []string{
	"id", "tenant_id", "subject_id", "kind", "method", "accepted", "accepted_at",
	"signature_image", "signature_ts", "device_class", "channel_address",
	"text_version", "text_params", "audit_digest", "created_at",
}

func TestGet_Signed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(recordColumns).AddRow(
		"r1", "t1", "s1", "PRIVACY", "digital", true, at,
		[]byte{1, 2}, at, "tablet", "+393331234567",
		"legaltext-v1", []byte(`{"tenant_name":"Studio","subject":{}}`), "abc", at,
	)
	mock.ExpectQuery(getQuery).WithArgs("t1", "s1", "PRIVACY").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "t1", "s1", models.KindPrivacy)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if err := got.Validate(at); err != nil {
		t.Fatalf("scanned record is inconsistent: %v", err)
	}
	if got.TextParams.TenantName != "Studio" || got.DeviceClass != models.DeviceTablet || !got.HasSignature() {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGet_Paper(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(recordColumns).AddRow(
		"r1", "t1", "s1", "PRIVACY", "paper", true, at,
		nil, nil, nil, "",
		"legaltext-v1", []byte(`{}`), "abc", at,
	)
	mock.ExpectQuery(getQuery).WithArgs("t1", "s1", "PRIVACY").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "t1", "s1", models.KindPrivacy)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.HasSignature() || !got.SignatureTimestamp.IsZero() || got.DeviceClass != "" {
		t.Fatalf("paper record must not carry a signing event: %+v", got)
	}
	if err := got.Validate(at); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).WithArgs("t1", "s1", "PRIVACY").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "t1", "s1", models.KindPrivacy)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_BadParams(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(recordColumns).AddRow(
		"r1", "t1", "s1", "PRIVACY", "paper", true, at,
		nil, nil, nil, "", "legaltext-v1", []byte(`{`), "abc", at,
	)
	mock.ExpectQuery(getQuery).WillReturnRows(rows)

	_, err := repo.Get(context.Background(), "t1", "s1", models.KindPrivacy)
	if !errors.Is(err, common.ErrInconsistentRecord) {
		t.Fatalf("want ErrInconsistentRecord, got %v", err)
	}
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+consents\s.*ON\s+CONFLICT\s+\(tenant_id,\s*subject_id,\s*kind\)\s+DO\s+UPDATE`).
		WithArgs("t1", "s1", "PRIVACY", "r1", "digital", true, at,
			[]byte{1, 2}, at, "tablet", "+393331234567",
			"legaltext-v1", sqlmock.AnyArg(), "abc", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), signed()); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpsert_PaperWritesNulls(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rec := &models.ConsentRecord{
		ID: "r2", TenantID: "t1", SubjectID: "s1", Kind: models.KindInformedConsent, Method: models.MethodPaper,
		Accepted: true, AcceptedAt: at, TextVersion: "legaltext-v1", AuditDigest: "d", CreatedAt: at,
	}
	mock.ExpectExec(`INSERT\s+INTO\s+consents\s`).
		WithArgs("t1", "s1", "INFORMED_CONSENT", "r2", "paper", true, at,
			nil, nil, nil, "", "legaltext-v1", sqlmock.AnyArg(), "d", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
}

func TestAppendEvent_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+consent_events\s`).WillReturnError(errors.New("db down"))

	err := repo.AppendEvent(context.Background(), signed())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

var summaryColumns = []string{"id", "tenant_id", "subject_id", "kind", "method", "accepted", "accepted_at", "has_signature", "device_class", "channel_address"}

func TestListSummaries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(summaryColumns).
		AddRow("r2", "t1", "s1", "INFORMED_CONSENT", "paper", true, at, false, nil, "").
		AddRow("r1", "t1", "s1", "PRIVACY", "digital", true, at, true, "tablet", "+393331234567")
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+consents\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+subject_id\s*=\s*\$2\s+ORDER\s+BY\s+kind\s*$`).
		WithArgs("t1", "s1").
		WillReturnRows(rows)

	got, err := repo.ListSummaries(context.Background(), "t1", "s1")
	if err != nil {
		t.Fatalf("ListSummaries error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 summaries, got %d", len(got))
	}
	if got[0].HasSignature || got[0].Method != models.MethodPaper {
		t.Fatalf("unexpected paper summary: %+v", got[0])
	}
	if !got[1].HasSignature || got[1].MaskedAddress != "+********4567" {
		t.Fatalf("unexpected digital summary: %+v", got[1])
	}
}

func TestHistory(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(summaryColumns).
		AddRow("r0", "t1", "s1", "PRIVACY", "digital", true, at.Add(-time.Hour), true, "mobile", "+39333").
		AddRow("r1", "t1", "s1", "PRIVACY", "digital", true, at, true, "tablet", "+39333")
	mock.ExpectQuery(`(?s)^SELECT\s+record_id,.*FROM\s+consent_events\s+WHERE.*ORDER\s+BY\s+seq\s*$`).
		WithArgs("t1", "s1", "PRIVACY").
		WillReturnRows(rows)

	got, err := repo.History(context.Background(), "t1", "s1", models.KindPrivacy)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(got) != 2 || got[0].RecordID != "r0" || got[1].DeviceClass != models.DeviceTablet {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestHistory_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+consent_events`).WillReturnError(errors.New("db down"))

	if _, err := repo.History(context.Background(), "t1", "s1", models.KindPrivacy); err == nil {
		t.Fatal("expected error")
	}
}
