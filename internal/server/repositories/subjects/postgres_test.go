package subjects

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

const getQuery = `(?s)^SELECT\s+id,\s*tenant_id,.*FROM\s+subjects\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`

var subjectColumns = []string{
	"id", "tenant_id", "first_name", "last_name", "fiscal_code", "birth_date", "birth_place",
	"address", "city", "phone", "email", "notes",
	"privacy_accepted", "privacy_accepted_at", "consent_accepted", "consent_accepted_at",
	"created_at", "updated_at",
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	birth := time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(subjectColumns).AddRow(
		"s1", "t1", "Maria", "Rossi", "RSSMRA", birth, "Roma",
		"Via Appia 1", "Roma", "+39333", "maria@example.com", "",
		true, at, false, nil,
		at, at,
	)
	mock.ExpectQuery(getQuery).WithArgs("t1", "s1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "t1", "s1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.FullName() != "Maria Rossi" || !got.BirthDate.Equal(birth) {
		t.Fatalf("unexpected subject: %+v", got)
	}
	if !got.PrivacyAccepted || !got.PrivacyAcceptedAt.Equal(at) {
		t.Fatalf("privacy flag not scanned: %+v", got)
	}
	if got.ConsentAccepted || !got.ConsentAcceptedAt.IsZero() {
		t.Fatalf("consent flag should be empty: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).WithArgs("t1", "ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "t1", "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).WithArgs("t1", "s1").WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), "t1", "s1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const saveQuery = `(?s)^INSERT\s+INTO\s+subjects.*ON\s+CONFLICT\s+\(id\)\s+DO\s+UPDATE\s+SET.*WHERE\s+subjects\.tenant_id\s*=\s*EXCLUDED\.tenant_id\s*$`

func TestSave_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(saveQuery).
		WithArgs("s1", "t1", "Maria", "Rossi", "", nil, "", "", "", "+39333", "", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.Subject{ID: "s1", TenantID: "t1", FirstName: "Maria", LastName: "Rossi", Phone: "+39333", UpdatedAt: now}
	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSave_OtherTenant(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(saveQuery).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.Subject{ID: "s1", TenantID: "t2"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSetAcceptance(t *testing.T) {
	tests := []struct {
		kind   models.DocumentKind
		column string
	}{
		{models.KindPrivacy, "privacy_accepted"},
		{models.KindInformedConsent, "consent_accepted"},
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(`(?s)^UPDATE\s+subjects\s+SET\s+`+tt.column+`\s*=\s*TRUE`).
				WithArgs("t1", "s1", at).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := repo.SetAcceptance(context.Background(), "t1", "s1", tt.kind, at); err != nil {
				t.Fatalf("SetAcceptance error: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestSetAcceptance_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.SetAcceptance(context.Background(), "t1", "s1", "OTHER", time.Now()); !errors.Is(err, common.ErrUnknownDocumentKind) {
		t.Fatalf("want ErrUnknownDocumentKind, got %v", err)
	}

	mock.ExpectExec(`UPDATE\s+subjects`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SetAcceptance(context.Background(), "t1", "ghost", models.KindPrivacy, time.Now()); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
