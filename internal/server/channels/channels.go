// Package channels implements the out-of-band transports used to deliver
// one-time codes.
package channels

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/server/otp"
)

// Supported channel kinds.
const (
	KindSMS   = "sms"
	KindEmail = "email"
	KindLog   = "log"
)

// Options configures every channel kind; only the fields of the selected
// kind are read.
type Options struct {
	Kind string

	SMSGatewayURL string
	SMSAPIKey     string
	SMSSender     string

	SendGridAPIKey string
	SendGridHost   string
	EmailFrom      string
	EmailFromName  string
	EmailSubject   string
}

// New builds the channel selected by opts.Kind.
func New(opts Options, log logging.Logger) (otp.Channel, error) {
	switch strings.ToLower(opts.Kind) {
	case KindSMS:
		ch, err := NewSMS(opts.SMSGatewayURL, opts.SMSAPIKey, opts.SMSSender, nil)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case KindEmail:
		ch, err := NewEmail(opts.SendGridAPIKey, opts.SendGridHost, opts.EmailFrom, opts.EmailFromName, opts.EmailSubject)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case KindLog:
		return NewLog(log), nil
	}
	return nil, fmt.Errorf("unknown channel kind %q", opts.Kind)
}

// AddressFunc picks the contact point of a subject for a channel.
type AddressFunc func(models.Subject) string

// AddressFor returns the address resolver matching kind. The development
// log channel prefers the phone and falls back to e-mail.
func AddressFor(kind string) AddressFunc {
	switch strings.ToLower(kind) {
	case KindEmail:
		return func(s models.Subject) string { return strings.TrimSpace(s.Email) }
	case KindLog:
		return func(s models.Subject) string {
			if p := strings.TrimSpace(s.Phone); p != "" {
				return p
			}
			return strings.TrimSpace(s.Email)
		}
	}
	return func(s models.Subject) string { return strings.TrimSpace(s.Phone) }
}
