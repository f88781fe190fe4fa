package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/google/uuid"
)

// TextParams are the generating parameters of the legal text shown to the
// signer. Certificates re-render the text from them.
type TextParams struct {
	TenantName string        `json:"tenant_name"`
	Subject    SubjectFields `json:"subject"`
}

// SigningEvent is produced by a verified signing session. Image, Timestamp
// and Device come from the same capture and are only ever written together.
type SigningEvent struct {
	Image          []byte
	Timestamp      time.Time
	Device         DeviceClass
	ChannelAddress string
}

// NewSigningEvent validates the triple before it can reach a record.
func NewSigningEvent(image []byte, at time.Time, device DeviceClass, channelAddress string) (SigningEvent, error) {
	if len(image) == 0 {
		return SigningEvent{}, common.ErrEmptySignature
	}
	if at.IsZero() || !device.Valid() {
		return SigningEvent{}, common.ErrInconsistentRecord
	}
	return SigningEvent{Image: image, Timestamp: at, Device: device, ChannelAddress: channelAddress}, nil
}

// ConsentRecord is the durable acceptance of one document kind by one
// subject. The current record is replaced wholesale by each new signing
// event; history keeps every event.
type ConsentRecord struct {
	ID        string
	TenantID  string
	SubjectID string
	Kind      DocumentKind
	Method    SigningMethod

	Accepted   bool
	AcceptedAt time.Time

	SignatureImage     []byte
	SignatureTimestamp time.Time
	DeviceClass        DeviceClass
	ChannelAddress     string

	TextVersion string
	TextParams  TextParams

	// AuditDigest seals the fields above; see package audit.
	AuditDigest string

	CreatedAt time.Time
}

// NewSignedRecord builds the record for a verified digital signature.
func NewSignedRecord(tenantID, subjectID string, kind DocumentKind, ev SigningEvent, textVersion string, params TextParams) (*ConsentRecord, error) {
	if len(ev.Image) == 0 {
		return nil, common.ErrEmptySignature
	}
	r := &ConsentRecord{
		ID:                 uuid.NewString(),
		TenantID:           tenantID,
		SubjectID:          subjectID,
		Kind:               kind,
		Method:             MethodDigital,
		Accepted:           true,
		AcceptedAt:         ev.Timestamp,
		SignatureImage:     ev.Image,
		SignatureTimestamp: ev.Timestamp,
		DeviceClass:        ev.Device,
		ChannelAddress:     ev.ChannelAddress,
		TextVersion:        textVersion,
		TextParams:         params,
		CreatedAt:          ev.Timestamp,
	}
	if err := r.Validate(ev.Timestamp); err != nil {
		return nil, err
	}
	return r, nil
}

// NewPaperRecord builds the administrative record for a legacy paper
// consent. It has no signature raster and no device.
func NewPaperRecord(tenantID, subjectID string, kind DocumentKind, acceptedAt, now time.Time, textVersion string, params TextParams) (*ConsentRecord, error) {
	r := &ConsentRecord{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectID:   subjectID,
		Kind:        kind,
		Method:      MethodPaper,
		Accepted:    true,
		AcceptedAt:  acceptedAt,
		TextVersion: textVersion,
		TextParams:  params,
		CreatedAt:   now,
	}
	if err := r.Validate(now); err != nil {
		return nil, err
	}
	return r, nil
}

// HasSignature reports whether a raster is attached.
func (r *ConsentRecord) HasSignature() bool {
	return len(r.SignatureImage) > 0
}

// Validate checks the record invariants. Any violation is reported as
// common.ErrInconsistentRecord.
func (r *ConsentRecord) Validate(now time.Time) error {
	fail := func(reason string) error {
		return fmt.Errorf("%w: %s", common.ErrInconsistentRecord, reason)
	}

	if r.Kind != KindPrivacy && r.Kind != KindInformedConsent {
		return fail("unknown document kind")
	}

	hasImage := len(r.SignatureImage) > 0
	hasTS := !r.SignatureTimestamp.IsZero()
	hasDevice := r.DeviceClass != ""

	if r.Accepted {
		if r.AcceptedAt.IsZero() {
			return fail("accepted without acceptance time")
		}
		if r.AcceptedAt.After(now) {
			return fail("acceptance time in the future")
		}
	} else if hasImage || hasTS || hasDevice {
		return fail("signing event fields on a record that is not accepted")
	}

	if hasImage && (!hasTS || !r.DeviceClass.Valid()) {
		return fail("signature image without timestamp or device class")
	}

	switch r.Method {
	case MethodDigital:
		if !r.Accepted {
			return nil
		}
		if !hasImage || !hasTS || !hasDevice {
			return fail("digital signature with partial signing event")
		}
		if !r.AcceptedAt.Equal(r.SignatureTimestamp) {
			return fail("acceptance and signature timestamps differ")
		}
	case MethodPaper:
		if hasImage || hasTS || hasDevice {
			return fail("paper consent carrying signing event fields")
		}
	default:
		return fail("unknown signing method")
	}
	return nil
}

// Summary drops every heavy or sensitive field.
func (r *ConsentRecord) Summary() ConsentSummary {
	return ConsentSummary{
		RecordID:      r.ID,
		TenantID:      r.TenantID,
		SubjectID:     r.SubjectID,
		Kind:          r.Kind,
		Method:        r.Method,
		Accepted:      r.Accepted,
		AcceptedAt:    r.AcceptedAt,
		HasSignature:  r.HasSignature(),
		DeviceClass:   r.DeviceClass,
		MaskedAddress: common.MaskAddress(r.ChannelAddress),
	}
}

// ConsentSummary is the light view used by list screens and history.
type ConsentSummary struct {
	RecordID      string
	TenantID      string
	SubjectID     string
	Kind          DocumentKind
	Method        SigningMethod
	Accepted      bool
	AcceptedAt    time.Time
	HasSignature  bool
	DeviceClass   DeviceClass
	MaskedAddress string
}
