package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
)

// BirthDateLayout is the input and display layout of birth dates.
const BirthDateLayout = "2006-01-02"

// Subject is a client or student record owned by the external registry.
// The consent core reads it and only flips the acceptance pairs.
type Subject struct {
	ID         string
	TenantID   string
	FirstName  string
	LastName   string
	FiscalCode string
	BirthDate  time.Time
	BirthPlace string
	Address    string
	City       string
	Phone      string
	Email      string
	Notes      string

	PrivacyAccepted   bool
	PrivacyAcceptedAt time.Time
	ConsentAccepted   bool
	ConsentAcceptedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName is "First Last" with blanks collapsed.
func (s Subject) FullName() string {
	return strings.TrimSpace(strings.Join(strings.Fields(s.FirstName+" "+s.LastName), " "))
}

// Fields snapshots the identifying fields used by the legal templates.
func (s Subject) Fields() SubjectFields {
	f := SubjectFields{
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		FiscalCode: s.FiscalCode,
		BirthPlace: s.BirthPlace,
		Address:    s.Address,
		City:       s.City,
		Phone:      s.Phone,
		Email:      s.Email,
		Notes:      s.Notes,
	}
	if !s.BirthDate.IsZero() {
		f.BirthDate = s.BirthDate.Format(BirthDateLayout)
	}
	return f
}

// Accepted returns the fast-path acceptance pair for kind.
func (s Subject) Accepted(kind DocumentKind) (bool, time.Time) {
	switch kind {
	case KindPrivacy:
		return s.PrivacyAccepted, s.PrivacyAcceptedAt
	case KindInformedConsent:
		return s.ConsentAccepted, s.ConsentAcceptedAt
	}
	return false, time.Time{}
}

// WithAcceptance returns a copy of s with the acceptance pair for kind set.
func (s Subject) WithAcceptance(kind DocumentKind, at time.Time) Subject {
	switch kind {
	case KindPrivacy:
		s.PrivacyAccepted, s.PrivacyAcceptedAt = true, at
	case KindInformedConsent:
		s.ConsentAccepted, s.ConsentAcceptedAt = true, at
	}
	return s
}

// Editable subject field names accepted by WithField.
const (
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldFiscalCode = "fiscal_code"
	FieldBirthDate  = "birth_date"
	FieldBirthPlace = "birth_place"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldPhone      = "phone"
	FieldEmail      = "email"
	FieldNotes      = "notes"
)

// WithField returns a copy of s with one field replaced. It never mutates
// the receiver, so a multi-field edit is a chain of pure updates and no
// caller can observe a half-applied patch. Acceptance pairs are not
// editable here.
func (s Subject) WithField(name, value string) (Subject, error) {
	value = strings.TrimSpace(value)
	switch name {
	case FieldFirstName:
		s.FirstName = value
	case FieldLastName:
		s.LastName = value
	case FieldFiscalCode:
		s.FiscalCode = strings.ToUpper(value)
	case FieldBirthDate:
		if value == "" {
			s.BirthDate = time.Time{}
			break
		}
		d, err := time.Parse(BirthDateLayout, value)
		if err != nil {
			return s, fmt.Errorf("%w: %s: %v", common.ErrIncorrectField, name, err)
		}
		s.BirthDate = d
	case FieldBirthPlace:
		s.BirthPlace = value
	case FieldAddress:
		s.Address = value
	case FieldCity:
		s.City = value
	case FieldPhone:
		s.Phone = value
	case FieldEmail:
		if value != "" && !strings.Contains(value, "@") {
			return s, fmt.Errorf("%w: %s", common.ErrIncorrectField, name)
		}
		s.Email = value
	case FieldNotes:
		s.Notes = value
	default:
		return s, fmt.Errorf("%w: unknown field %q", common.ErrIncorrectField, name)
	}
	return s, nil
}

// WithFields applies a patch atomically: either every field is applied or
// the original subject is returned with the first error. Keys are applied
// in sorted order so the result does not depend on map iteration.
func (s Subject) WithFields(patch map[string]string) (Subject, error) {
	out := s
	for _, name := range sortedKeys(patch) {
		next, err := out.WithField(name, patch[name])
		if err != nil {
			return s, err
		}
		out = next
	}
	return out, nil
}

// SubjectFields is the snapshot of subject data a signer saw. It is stored
// with each signing event and is the only input of the consent template.
type SubjectFields struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FiscalCode string `json:"fiscal_code"`
	BirthDate  string `json:"birth_date"`
	BirthPlace string `json:"birth_place"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Notes      string `json:"notes"`
}

// FullName is "First Last" with blanks collapsed.
func (f SubjectFields) FullName() string {
	return strings.TrimSpace(strings.Join(strings.Fields(f.FirstName+" "+f.LastName), " "))
}
