package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/timex"
	"github.com/google/uuid"
)

// State of a signing session.
type State string

const (
	StateReview   State = "REVIEW"
	StateOTPSent  State = "OTP_SENT"
	StateVerified State = "VERIFIED"
	StateAborted  State = "ABORTED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateAborted
}

// Config tunes sessions. Zero CodeTTL or MaxAttempts disables the
// corresponding limit.
type Config struct {
	CodeTTL     time.Duration
	MaxAttempts int

	Code    CodeFunc
	Message func(code string) string
	Now     func() time.Time
}

// DefaultConfig has a ten minute code lifetime and five attempts.
func DefaultConfig() Config {
	return Config{
		CodeTTL:     10 * time.Minute,
		MaxAttempts: 5,
	}
}

func (c Config) withDefaults() Config {
	if c.Code == nil {
		c.Code = NewCodeFunc(nil)
	}
	if c.Message == nil {
		c.Message = DefaultMessage
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Key identifies the signing pair a session belongs to.
type Key struct {
	TenantID  string
	SubjectID string
	Kind      models.DocumentKind
}

// Session is one signing attempt. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id    string
	token string
	key   Key
	cfg   Config

	address string
	state   State

	code     string
	issuedAt time.Time
	attempts int
	sending  bool

	image  []byte
	device models.DeviceClass

	presented Presented

	superseded bool
	touchedAt  time.Time
}

// NewSession starts a session in REVIEW. address is where codes are sent
// and may be empty, in which case the session can only be aborted.
func NewSession(key Key, address string, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:        uuid.NewString(),
		token:     uuid.NewString(),
		key:       key,
		cfg:       cfg,
		address:   strings.TrimSpace(address),
		state:     StateReview,
		touchedAt: cfg.Now(),
	}
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Token() string { return s.token }
func (s *Session) Key() Key      { return s.key }

// Presented is the legal text a signer reviewed, kept as its generating
// parameters so the record can carry the same snapshot.
type Presented struct {
	Version string
	Params  models.TextParams
}

// Present records what the signer is shown.
func (s *Session) Present(p Presented) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = p
}

func (s *Session) Presented() Presented {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authorize checks the token handed out when the session was opened.
func (s *Session) Authorize(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.superseded {
		return common.ErrSessionSuperseded
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return common.ErrorUnauthorized
	}
	return nil
}

// RequestCode issues a fresh code and dispatches it over ch. It is valid in
// REVIEW and, as a resend, in OTP_SENT. The session lock is not held while
// the channel is called; a second request during that time fails with
// common.ErrDispatchInFlight. On dispatch failure the session keeps its
// previous state and code.
func (s *Session) RequestCode(ctx context.Context, ch Channel) error {
	s.mu.Lock()
	if s.state != StateReview && s.state != StateOTPSent {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot request a code in %s", common.ErrInvalidState, s.state)
	}
	if s.address == "" {
		s.mu.Unlock()
		return common.ErrMissingChannelAddress
	}
	if s.sending {
		s.mu.Unlock()
		return common.ErrDispatchInFlight
	}
	code, err := s.cfg.Code()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("generate code: %w", err)
	}
	s.sending = true
	s.touchedAt = s.cfg.Now()
	address, msg := s.address, s.cfg.Message(code)
	s.mu.Unlock()

	sendErr := ch.Send(ctx, address, msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	s.touchedAt = s.cfg.Now()
	if s.state.Terminal() {
		return fmt.Errorf("%w: session ended during dispatch", common.ErrInvalidState)
	}
	if sendErr != nil {
		return fmt.Errorf("%w: %w", common.ErrChannelDispatch, sendErr)
	}
	s.code = code
	s.issuedAt = s.cfg.Now()
	s.attempts = 0
	s.state = StateOTPSent
	return nil
}

// SubmitSignature stores the captured raster and the device it came from.
// A later submission replaces the earlier one.
func (s *Session) SubmitSignature(image []byte, device models.DeviceClass) error {
	if len(image) == 0 {
		return common.ErrEmptySignature
	}
	if !device.Valid() {
		return fmt.Errorf("%w: device class %q", common.ErrInconsistentRecord, device)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return fmt.Errorf("%w: cannot submit a signature in %s", common.ErrInvalidState, s.state)
	}
	s.image = append([]byte(nil), image...)
	s.device = device
	s.touchedAt = s.cfg.Now()
	return nil
}

// Verify compares input with the issued code exactly, ignoring letter
// case only. On a match the session becomes VERIFIED and
// returns the signing event. A mismatch leaves the session in OTP_SENT
// unless the attempt limit is reached, which aborts it.
func (s *Session) Verify(input string) (models.SigningEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = s.cfg.Now()

	if s.state != StateOTPSent {
		return models.SigningEvent{}, fmt.Errorf("%w: cannot verify in %s", common.ErrInvalidState, s.state)
	}
	if s.sending {
		return models.SigningEvent{}, common.ErrDispatchInFlight
	}
	if len(s.image) == 0 {
		return models.SigningEvent{}, common.ErrEmptySignature
	}
	now := s.cfg.Now()
	if s.cfg.CodeTTL > 0 && now.Sub(s.issuedAt) > s.cfg.CodeTTL {
		return models.SigningEvent{}, common.ErrCodeExpired
	}

	given := strings.ToLower(input)
	if subtle.ConstantTimeCompare([]byte(given), []byte(strings.ToLower(s.code))) != 1 {
		s.attempts++
		if s.cfg.MaxAttempts > 0 && s.attempts >= s.cfg.MaxAttempts {
			s.abortLocked()
			return models.SigningEvent{}, fmt.Errorf("%w: %w", common.ErrAttemptsExhausted, common.ErrCodeMismatch)
		}
		return models.SigningEvent{}, common.ErrCodeMismatch
	}

	ev, err := models.NewSigningEvent(s.image, timex.DBPrecision(now), s.device, s.address)
	if err != nil {
		return models.SigningEvent{}, err
	}
	s.state = StateVerified
	s.code = ""
	s.image = nil
	return ev, nil
}

// Abort cancels the session and discards the code and the raster. Aborting
// an aborted session is a no-op; a verified session cannot be aborted.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateVerified {
		return fmt.Errorf("%w: session already verified", common.ErrInvalidState)
	}
	s.abortLocked()
	return nil
}

func (s *Session) abortLocked() {
	s.state = StateAborted
	s.code = ""
	s.image = nil
	s.device = ""
}

func (s *Session) supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.superseded = true
	if s.state != StateVerified {
		s.abortLocked()
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// View is a read-only snapshot safe to hand to transports. It never holds
// the code or the raster.
type View struct {
	ID                string
	Key               Key
	State             State
	MaskedAddress     string
	HasAddress        bool
	Sending           bool
	HasSignature      bool
	AttemptsRemaining int
	CodeExpiresAt     time.Time
}

// View returns the current snapshot. AttemptsRemaining is -1 when
// attempts are unlimited.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:                s.id,
		Key:               s.key,
		State:             s.state,
		MaskedAddress:     common.MaskAddress(s.address),
		HasAddress:        s.address != "",
		Sending:           s.sending,
		HasSignature:      len(s.image) > 0,
		AttemptsRemaining: -1,
	}
	if s.cfg.MaxAttempts > 0 {
		v.AttemptsRemaining = max(s.cfg.MaxAttempts-s.attempts, 0)
	}
	if s.state == StateOTPSent && s.cfg.CodeTTL > 0 {
		v.CodeExpiresAt = s.issuedAt.Add(s.cfg.CodeTTL)
	}
	return v
}
