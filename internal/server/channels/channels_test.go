package channels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type warnRecorder struct {
	nopLogger
	args []any
}

func (w *warnRecorder) Warn(_ context.Context, _ string, args ...any) { w.args = args }
func (w *warnRecorder) With(...any) logging.Logger                  { return w }

func TestSMS_Send(t *testing.T) {
	var got smsPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch, err := NewSMS(srv.URL, "k3y", "Studio", srv.Client())
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), "+393331234567", "code 123456"))

	assert.Equal(t, "Bearer k3y", auth)
	assert.Equal(t, smsPayload{From: "Studio", To: "+393331234567", Text: "code 123456"}, got)
}

func TestSMS_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch, err := NewSMS(srv.URL, "", "", nil)
	require.NoError(t, err)
	err = ch.Send(context.Background(), "+39333", "x")
	assert.ErrorContains(t, err, "502")
}

func TestSMS_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	ch, err := NewSMS(url, "", "", nil)
	require.NoError(t, err)
	assert.Error(t, ch.Send(context.Background(), "+39333", "x"))
}

func TestNewSMS_RequiresURL(t *testing.T) {
	_, err := NewSMS("", "", "", nil)
	assert.Error(t, err)
}

func TestEmail_Send(t *testing.T) {
	var body map[string]any
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch, err := NewEmail("SG.key", srv.URL, "noreply@studio.example", "Studio", "")
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), "maria@example.com", "code 123456"))

	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "/v3/mail/send", path)
	from := body["from"].(map[string]any)
	assert.Equal(t, "noreply@studio.example", from["email"])
	p := body["personalizations"].([]any)[0].(map[string]any)
	assert.Equal(t, "Your signing code", p["subject"])
	to := p["to"].([]any)[0].(map[string]any)
	assert.Equal(t, "maria@example.com", to["email"])
	content := body["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "code 123456", content["value"])
}

func TestEmail_NonAccepted(t *testing.T) {
	orig := sendRequest
	defer func() { sendRequest = orig }()
	sendRequest = func(context.Context, rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized}, nil
	}

	ch, err := NewEmail("SG.key", "", "noreply@studio.example", "", "Code")
	require.NoError(t, err)
	assert.ErrorContains(t, ch.Send(context.Background(), "a@b.it", "x"), "401")

	sendRequest = func(context.Context, rest.Request) (*rest.Response, error) {
		return nil, errors.New("boom")
	}
	assert.ErrorContains(t, ch.Send(context.Background(), "a@b.it", "x"), "boom")
}

func TestNewEmail_Validation(t *testing.T) {
	_, err := NewEmail("", "", "a@b.it", "", "")
	assert.Error(t, err)
	_, err = NewEmail("k", "", "", "", "")
	assert.Error(t, err)
}

func TestLog_Send(t *testing.T) {
	rec := &warnRecorder{}
	ch := NewLog(rec)
	require.NoError(t, ch.Send(context.Background(), "+39333", "code 123456"))
	assert.Equal(t, []any{"address", "+39333", "message", "code 123456"}, rec.args)
}

func TestNew(t *testing.T) {
	ch, err := New(Options{Kind: "LOG"}, nopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &Log{}, ch)

	ch, err = New(Options{Kind: KindSMS, SMSGatewayURL: "http://gw"}, nopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &SMS{}, ch)

	ch, err = New(Options{Kind: KindEmail, SendGridAPIKey: "k", EmailFrom: "a@b.it"}, nopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &Email{}, ch)

	_, err = New(Options{Kind: "pigeon"}, nopLogger{})
	assert.Error(t, err)
}

func TestAddressFor(t *testing.T) {
	s := models.Subject{Phone: " +39333 ", Email: "a@b.it"}
	assert.Equal(t, "+39333", AddressFor(KindSMS)(s))
	assert.Equal(t, "a@b.it", AddressFor(KindEmail)(s))
	assert.Equal(t, "+39333", AddressFor(KindLog)(s))
	assert.Equal(t, "a@b.it", AddressFor(KindLog)(models.Subject{Email: "a@b.it"}))
	assert.Equal(t, "", AddressFor(KindSMS)(models.Subject{Email: "a@b.it"}))
}
