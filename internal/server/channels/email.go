package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// sendRequest is swapped in tests.
var sendRequest = sendgrid.MakeRequestWithContext

// Email delivers codes through the SendGrid v3 mail API.
type Email struct {
	request rest.Request
	from    *mail.Email
	subject string
}

// NewEmail builds a SendGrid channel. host may be empty for the public API.
func NewEmail(apiKey, host, from, fromName, subject string) (*Email, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if from == "" {
		return nil, errors.New("sender address is required")
	}
	if subject == "" {
		subject = "Your signing code"
	}
	request := sendgrid.GetRequest(apiKey, sendGridEndpoint, host)
	request.Method = rest.Post
	return &Email{
		request: request,
		from:    mail.NewEmail(fromName, from),
		subject: subject,
	}, nil
}

func (e *Email) Send(ctx context.Context, address, message string) error {
	m := mail.NewV3Mail()
	m.SetFrom(e.from)
	m.AddContent(mail.NewContent("text/plain", message))

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", address))
	p.Subject = e.subject
	m.AddPersonalizations(p)

	req := e.request
	req.Body = mail.GetRequestBody(m)
	resp, err := sendRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}
