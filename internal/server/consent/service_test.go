package consent

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/assembly"
	"github.com/dmitrijs2005/studiosign/internal/server/audit"
	"github.com/dmitrijs2005/studiosign/internal/server/auth"
	"github.com/dmitrijs2005/studiosign/internal/server/capture"
	"github.com/dmitrijs2005/studiosign/internal/server/legaltext"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/server/otp"
	"github.com/dmitrijs2005/studiosign/internal/server/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type recordingChannel struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (c *recordingChannel) Send(_ context.Context, address, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, address+": "+message)
	return nil
}

// failingRegistry refuses consent writes.
type failingRegistry struct {
	registry.Registry
}

func (failingRegistry) SaveConsent(context.Context, *models.ConsentRecord) error {
	return errors.New("disk full")
}

type archived struct {
	key  string
	data []byte
}

type fakeArchive struct{ got []archived }

func (a *fakeArchive) Put(_ context.Context, tenantID, filename, _ string, data []byte) (string, string, error) {
	key := tenantID + "/" + filename
	a.got = append(a.got, archived{key: key, data: data})
	return key, "https://archive.test/" + key, nil
}

var (
	operator = auth.Principal{TenantID: "t1", OperatorID: "op1", Role: auth.RoleOperator}
	admin    = auth.Principal{TenantID: "t1", OperatorID: "adm", Role: auth.RoleAdmin}
	now      = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
)

var strokes = [][]capture.Point{
	{{X: 20, Y: 100, T: 0}, {X: 60, Y: 60, T: 16}, {X: 120, Y: 140, T: 32}, {X: 200, Y: 80, T: 48}},
}

const tabletUA = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)"

type fixture struct {
	svc      *Service
	reg      *registry.Memory
	channel  *recordingChannel
	sessions *otp.Registry
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewMemory()
	require.NoError(t, reg.SaveTenant(ctx, &models.Tenant{ID: "t1", Name: "Studio Aurora"}))
	require.NoError(t, reg.SaveSubject(ctx, &models.Subject{
		ID: "s1", TenantID: "t1", FirstName: "Maria", LastName: "Rossi", Phone: "+393331234567",
	}))
	require.NoError(t, reg.SaveSubject(ctx, &models.Subject{ID: "s2", TenantID: "t1", FirstName: "Luca", LastName: "Bianchi"}))

	clock := func() time.Time { return now }
	cfg := otp.DefaultConfig()
	cfg.Code = func() (string, error) { return "482913", nil }
	cfg.Now = clock
	sessions := otp.NewRegistry(cfg, time.Hour, nopLogger{})

	sealer, err := audit.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	ch := &recordingChannel{}
	d := Deps{
		Registry: reg,
		Sessions: sessions,
		Channel:  ch,
		Sealer:   sealer,
		Engine:   assembly.NewEngine(nopLogger{}, assembly.WithClock(clock)),
		Now:      clock,
	}
	if mutate != nil {
		mutate(&d)
	}
	svc, err := NewService(d, nopLogger{})
	require.NoError(t, err)
	return &fixture{svc: svc, reg: reg, channel: ch, sessions: sessions}
}

func (f *fixture) open(t *testing.T, subjectID string, kind models.DocumentKind) *Opened {
	t.Helper()
	o, err := f.svc.OpenSigningSession(context.Background(), operator, subjectID, kind, false)
	require.NoError(t, err)
	require.NotNil(t, o.Session)
	return o
}

func (f *fixture) sign(t *testing.T, subjectID string, kind models.DocumentKind) *models.ConsentSummary {
	t.Helper()
	ctx := context.Background()
	o := f.open(t, subjectID, kind)
	_, err := f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, tabletUA)
	require.NoError(t, err)
	v, sum, err := f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "482913")
	require.NoError(t, err)
	require.Equal(t, otp.StateVerified, v.State)
	return sum
}

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(Deps{}, nopLogger{})
	assert.Error(t, err)
}

func TestOpen_StartsInReviewWithRenderedText(t *testing.T) {
	f := newFixture(t, nil)
	o := f.open(t, "s1", models.KindPrivacy)

	assert.Equal(t, otp.StateReview, o.Session.State)
	assert.Equal(t, "+********4567", o.Session.MaskedAddress)
	assert.Contains(t, o.Text, "Studio Aurora")
	assert.NotEmpty(t, o.Title)
	assert.Nil(t, o.Existing)
}

func TestOpen_OtherTenantSubjectNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.OpenSigningSession(context.Background(), auth.Principal{TenantID: "t2"}, "s1", models.KindPrivacy, false)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestScenarioA_MissingChannelAddress(t *testing.T) {
	f := newFixture(t, nil)
	o := f.open(t, "s2", models.KindPrivacy)
	assert.False(t, o.Session.HasAddress)

	v, err := f.svc.RequestCode(context.Background(), operator, o.Session.ID, o.Token)
	assert.ErrorIs(t, err, common.ErrMissingChannelAddress)
	assert.Equal(t, otp.StateReview, v.State)
	assert.Empty(t, f.channel.messages)
}

func TestScenarioB_MatchingCodeWritesRecord(t *testing.T) {
	f := newFixture(t, nil)
	sum := f.sign(t, "s1", models.KindPrivacy)

	assert.True(t, sum.Accepted)
	assert.True(t, sum.HasSignature)
	assert.Equal(t, models.DeviceTablet, sum.DeviceClass)
	require.Len(t, f.channel.messages, 1)
	assert.Contains(t, f.channel.messages[0], "482913")

	rec, err := f.reg.GetConsent(context.Background(), "t1", "s1", models.KindPrivacy)
	require.NoError(t, err)
	assert.True(t, rec.Accepted)
	assert.NotEmpty(t, rec.SignatureImage)
	assert.Equal(t, now, rec.SignatureTimestamp)
	assert.Equal(t, now, rec.AcceptedAt)
	assert.Equal(t, "+393331234567", rec.ChannelAddress)
	assert.Equal(t, "Studio Aurora", rec.TextParams.TenantName)
	assert.NotEmpty(t, rec.AuditDigest)

	subj, err := f.reg.GetSubject(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.True(t, subj.PrivacyAccepted)
	assert.Zero(t, f.sessions.Len())
}

func TestScenarioC_MismatchWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.open(t, "s1", models.KindInformedConsent)
	_, err := f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, "")
	require.NoError(t, err)

	v, sum, err := f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "000000")
	assert.ErrorIs(t, err, common.ErrCodeMismatch)
	assert.Nil(t, sum)
	assert.Equal(t, otp.StateOTPSent, v.State)

	_, err = f.reg.GetConsent(ctx, "t1", "s1", models.KindInformedConsent)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestScenarioE_ExistingSignatureIsShown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sign(t, "s1", models.KindPrivacy)
	before, err := f.reg.GetConsent(ctx, "t1", "s1", models.KindPrivacy)
	require.NoError(t, err)

	o, err := f.svc.OpenSigningSession(ctx, operator, "s1", models.KindPrivacy, false)
	require.NoError(t, err)
	assert.Nil(t, o.Session)
	require.NotNil(t, o.Existing)
	assert.Equal(t, before.ID, o.Existing.RecordID)
	assert.Contains(t, o.Text, "Studio Aurora")

	cert, err := f.svc.DownloadCertificate(ctx, operator, "s1", models.KindPrivacy)
	require.NoError(t, err)
	assert.True(t, cert.SignatureRendered)
	assert.Equal(t, "privacy_Rossi_Maria_20260302.pdf", cert.Filename)

	after, err := f.reg.GetConsent(ctx, "t1", "s1", models.KindPrivacy)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestResignCreatesNewEvent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.sign(t, "s1", models.KindPrivacy)

	o, err := f.svc.OpenSigningSession(ctx, operator, "s1", models.KindPrivacy, true)
	require.NoError(t, err)
	require.NotNil(t, o.Session)
	_, err = f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, "desktop")
	require.NoError(t, err)
	_, second, err := f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "482913")
	require.NoError(t, err)
	assert.NotEqual(t, first.RecordID, second.RecordID)
	assert.Equal(t, models.DeviceDesktop, second.DeviceClass)

	hist, err := f.svc.ConsentHistory(ctx, operator, "s1", models.KindPrivacy)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, first.RecordID, hist[0].RecordID)
}

func TestSubmitSignature_EmptyStrokes(t *testing.T) {
	f := newFixture(t, nil)
	o := f.open(t, "s1", models.KindPrivacy)
	_, err := f.svc.SubmitSignature(context.Background(), operator, o.Session.ID, o.Token, nil, "")
	assert.ErrorIs(t, err, common.ErrEmptySignature)
}

func TestSessionScopedByTenantAndToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.open(t, "s1", models.KindPrivacy)

	_, err := f.svc.RequestCode(ctx, auth.Principal{TenantID: "t2"}, o.Session.ID, o.Token)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	_, err = f.svc.RequestCode(ctx, operator, o.Session.ID, "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	again := f.open(t, "s1", models.KindPrivacy)
	_, err = f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	assert.ErrorIs(t, err, common.ErrSessionSuperseded)
	_, err = f.svc.RequestCode(ctx, operator, again.Session.ID, again.Token)
	assert.NoError(t, err)
}

func TestDispatchFailureIsRecoverable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.open(t, "s1", models.KindPrivacy)

	f.channel.err = errors.New("gateway down")
	v, err := f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	assert.ErrorIs(t, err, common.ErrChannelDispatch)
	assert.Equal(t, otp.StateReview, v.State)

	f.channel.err = nil
	v, err = f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	assert.Equal(t, otp.StateOTPSent, v.State)
}

func TestAbortDiscardsSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.open(t, "s1", models.KindPrivacy)
	_, err := f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, "")
	require.NoError(t, err)

	v, err := f.svc.Abort(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	assert.Equal(t, otp.StateAborted, v.State)
	assert.False(t, v.HasSignature)

	_, err = f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
	_, err = f.reg.GetConsent(ctx, "t1", "s1", models.KindPrivacy)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAttemptsExhaustedDiscardsSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.open(t, "s1", models.KindPrivacy)
	_, err := f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, "")
	require.NoError(t, err)

	for i := 0; i < otp.DefaultConfig().MaxAttempts-1; i++ {
		_, _, err = f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "000000")
		require.ErrorIs(t, err, common.ErrCodeMismatch)
	}
	v, _, err := f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "000000")
	assert.ErrorIs(t, err, common.ErrAttemptsExhausted)
	assert.Equal(t, otp.StateAborted, v.State)
	assert.Zero(t, f.sessions.Len())
}

func TestVerify_SaveFailureDiscardsSession(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Registry = failingRegistry{Registry: d.Registry} })
	ctx := context.Background()
	o := f.open(t, "s1", models.KindPrivacy)
	_, err := f.svc.RequestCode(ctx, operator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, operator, o.Session.ID, o.Token, strokes, "")
	require.NoError(t, err)

	_, sum, err := f.svc.Verify(ctx, operator, o.Session.ID, o.Token, "482913")
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, sum)
	assert.Zero(t, f.sessions.Len())
}

func TestDownloadCertificate_NotSigned(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.DownloadCertificate(context.Background(), operator, "s1", models.KindPrivacy)
	assert.ErrorIs(t, err, common.ErrNotSigned)
}

func TestDownloadCertificate_Tampered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sign(t, "s1", models.KindPrivacy)

	rec, err := f.reg.GetConsent(ctx, "t1", "s1", models.KindPrivacy)
	require.NoError(t, err)
	rec.DeviceClass = models.DeviceDesktop
	require.NoError(t, f.reg.SaveConsent(ctx, rec))

	_, err = f.svc.DownloadCertificate(ctx, operator, "s1", models.KindPrivacy)
	assert.ErrorIs(t, err, common.ErrTamperedRecord)
}

func TestDownloadCertificate_Archived(t *testing.T) {
	arch := &fakeArchive{}
	f := newFixture(t, func(d *Deps) { d.Archive = arch })
	f.sign(t, "s1", models.KindPrivacy)

	cert, err := f.svc.DownloadCertificate(context.Background(), operator, "s1", models.KindPrivacy)
	require.NoError(t, err)
	require.Len(t, arch.got, 1)
	assert.Equal(t, cert.Data, arch.got[0].data)
	assert.Equal(t, "https://archive.test/"+cert.ArchiveKey, cert.URL)
}

func TestRecordPaperConsent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	signedOn := now.Add(-48 * time.Hour)

	_, err := f.svc.RecordPaperConsent(ctx, operator, "s2", models.KindInformedConsent, signedOn)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	sum, err := f.svc.RecordPaperConsent(ctx, admin, "s2", models.KindInformedConsent, signedOn)
	require.NoError(t, err)
	assert.Equal(t, models.MethodPaper, sum.Method)
	assert.False(t, sum.HasSignature)

	_, err = f.svc.RecordPaperConsent(ctx, admin, "s2", models.KindInformedConsent, now.Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrInconsistentRecord)

	cert, err := f.svc.DownloadCertificate(ctx, operator, "s2", models.KindInformedConsent)
	require.NoError(t, err)
	assert.False(t, cert.SignatureRendered)

	list, err := f.svc.ListConsents(ctx, operator, "s2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, signedOn, list[0].AcceptedAt)
}

func TestUpsertSubject(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.UpsertSubject(ctx, operator, "s1", map[string]string{"notes": "x"})
	assert.ErrorIs(t, err, common.ErrorForbidden)

	s, err := f.svc.UpsertSubject(ctx, admin, "", map[string]string{"first_name": "Anna", "phone": "+39 333 0000000"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "t1", s.TenantID)
	assert.Equal(t, "Anna", s.FirstName)

	_, err = f.svc.UpsertSubject(ctx, admin, s.ID, map[string]string{"email": "not-an-email", "city": "Roma"})
	assert.ErrorIs(t, err, common.ErrIncorrectField)
	got, err := f.reg.GetSubject(ctx, "t1", s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.City)

	f.sign(t, "s1", models.KindPrivacy)
	updated, err := f.svc.UpsertSubject(ctx, admin, "s1", map[string]string{"city": "Milano"})
	require.NoError(t, err)
	assert.Equal(t, "Milano", updated.City)
	assert.True(t, updated.PrivacyAccepted)
}

func TestUpsertTenant_NameReachesTextAndCertificate(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Engine = assembly.NewEngine(nopLogger{}, assembly.WithClock(func() time.Time { return now }), assembly.WithCompression(false))
	})
	ctx := context.Background()
	studioAdmin := auth.Principal{TenantID: "t9", OperatorID: "adm9", Role: auth.RoleAdmin}
	studioOperator := auth.Principal{TenantID: "t9", OperatorID: "op9", Role: auth.RoleOperator}

	_, err := f.svc.UpsertSubject(ctx, studioAdmin, "s9", map[string]string{"first_name": "Elena"})
	assert.ErrorIs(t, err, common.ErrorNotFound, "subjects need an existing tenant")

	_, err = f.svc.UpsertTenant(ctx, studioOperator, map[string]string{"name": "Studio Luce"})
	assert.ErrorIs(t, err, common.ErrorForbidden)
	_, err = f.svc.UpsertTenant(ctx, studioAdmin, map[string]string{"phone": "+39 06 1234"})
	assert.ErrorIs(t, err, common.ErrIncorrectField, "a new tenant needs a name")

	tenant, err := f.svc.UpsertTenant(ctx, studioAdmin, map[string]string{"name": "Studio Luce", "vat_number": "it09876543210"})
	require.NoError(t, err)
	assert.Equal(t, "t9", tenant.ID)
	assert.Equal(t, "Studio Luce", tenant.Name)
	assert.Equal(t, "IT09876543210", tenant.VATNumber)

	_, err = f.svc.UpsertSubject(ctx, studioAdmin, "s9", map[string]string{"first_name": "Elena", "last_name": "Neri", "phone": "+393330000009"})
	require.NoError(t, err)

	privacy, err := f.svc.OpenSigningSession(ctx, studioOperator, "s9", models.KindPrivacy, false)
	require.NoError(t, err)
	assert.Contains(t, privacy.Text, "Data controller: Studio Luce.")
	assert.NotContains(t, privacy.Text, legaltext.Placeholder+".")
	_, err = f.svc.Abort(ctx, studioOperator, privacy.Session.ID, privacy.Token)
	require.NoError(t, err)

	o, err := f.svc.OpenSigningSession(ctx, studioOperator, "s9", models.KindInformedConsent, false)
	require.NoError(t, err)
	_, err = f.svc.RequestCode(ctx, studioOperator, o.Session.ID, o.Token)
	require.NoError(t, err)
	_, err = f.svc.SubmitSignature(ctx, studioOperator, o.Session.ID, o.Token, strokes, tabletUA)
	require.NoError(t, err)
	_, _, err = f.svc.Verify(ctx, studioOperator, o.Session.ID, o.Token, "482913")
	require.NoError(t, err)

	cert, err := f.svc.DownloadCertificate(ctx, studioOperator, "s9", models.KindInformedConsent)
	require.NoError(t, err)
	assert.NotContains(t, o.Text, "Studio Luce", "the consent text does not name the tenant")
	assert.True(t, bytes.Contains(cert.Data, []byte("(Studio Luce)")), "certificate header names the tenant")
	assert.True(t, bytes.Contains(cert.Data, []byte("VAT IT09876543210")))

	renamed, err := f.svc.UpsertTenant(ctx, studioAdmin, map[string]string{"name": "Studio Luce Roma"})
	require.NoError(t, err)
	assert.Equal(t, "IT09876543210", renamed.VATNumber, "unpatched fields are kept")
}
