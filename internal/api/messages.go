package api

import "time"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

type SessionView struct {
	ID                string     `json:"id"`
	SubjectID         string     `json:"subject_id"`
	Kind              string     `json:"kind"`
	State             string     `json:"state"`
	MaskedAddress     string     `json:"masked_address,omitempty"`
	HasAddress        bool       `json:"has_address"`
	Sending           bool       `json:"sending"`
	HasSignature      bool       `json:"has_signature"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	CodeExpiresAt     *time.Time `json:"code_expires_at,omitempty"`
}

type ConsentSummary struct {
	RecordID      string     `json:"record_id"`
	SubjectID     string     `json:"subject_id"`
	Kind          string     `json:"kind"`
	Method        string     `json:"method"`
	Accepted      bool       `json:"accepted"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	HasSignature  bool       `json:"has_signature"`
	DeviceClass   string     `json:"device_class,omitempty"`
	MaskedAddress string     `json:"masked_address,omitempty"`
}

type Subject struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	FiscalCode        string     `json:"fiscal_code,omitempty"`
	BirthDate         string     `json:"birth_date,omitempty"`
	BirthPlace        string     `json:"birth_place,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Email             string     `json:"email,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	PrivacyAccepted   bool       `json:"privacy_accepted"`
	PrivacyAcceptedAt *time.Time `json:"privacy_accepted_at,omitempty"`
	ConsentAccepted   bool       `json:"consent_accepted"`
	ConsentAcceptedAt *time.Time `json:"consent_accepted_at,omitempty"`
}

type OpenSessionRequest struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"`
	Resign    bool   `json:"resign,omitempty"`
}

// OpenSessionResponse carries either a new session with its token or the
// existing acceptance of the pair.
type OpenSessionResponse struct {
	Session  *SessionView    `json:"session,omitempty"`
	Token    string          `json:"token,omitempty"`
	Existing *ConsentSummary `json:"existing,omitempty"`
	Title    string          `json:"title"`
	Text     string          `json:"text"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type SubmitSignatureRequest struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	Strokes   [][]Point `json:"strokes"`
	// Device is the capture environment descriptor, usually a user agent.
	Device string `json:"device,omitempty"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Code      string `json:"code"`
}

type VerifyResponse struct {
	Session SessionView     `json:"session"`
	Record  *ConsentSummary `json:"record,omitempty"`
}

type CertificateRequest struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"`
}

type CertificateResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	URL         string `json:"url,omitempty"`
}

type ListConsentsRequest struct {
	SubjectID string `json:"subject_id"`
}

type ListConsentsResponse struct {
	Items []ConsentSummary `json:"items"`
}

type HistoryRequest struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"`
}

type HistoryResponse struct {
	Events []ConsentSummary `json:"events"`
}

type PaperConsentRequest struct {
	SubjectID  string    `json:"subject_id"`
	Kind       string    `json:"kind"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type UpsertSubjectRequest struct {
	SubjectID string            `json:"subject_id,omitempty"`
	Fields    map[string]string `json:"fields"`
}

// UpsertTenantRequest patches the tenant of the caller's token.
type UpsertTenantRequest struct {
	Fields map[string]string `json:"fields"`
}

type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	VATNumber string `json:"vat_number,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
