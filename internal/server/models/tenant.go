package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/studiosign/internal/common"
)

// Tenant is the studio owning subjects and consents. Its name is the data
// controller of the privacy notice and heads every certificate.
type Tenant struct {
	ID        string
	Name      string
	Address   string
	VATNumber string
	Email     string
	Phone     string
}

// Tenant field names accepted by WithField.
const (
	TenantFieldName      = "name"
	TenantFieldAddress   = "address"
	TenantFieldVATNumber = "vat_number"
	TenantFieldEmail     = "email"
	TenantFieldPhone     = "phone"
)

// WithField returns a copy of t with one field replaced.
func (t Tenant) WithField(name, value string) (Tenant, error) {
	value = strings.TrimSpace(value)
	switch name {
	case TenantFieldName:
		t.Name = value
	case TenantFieldAddress:
		t.Address = value
	case TenantFieldVATNumber:
		t.VATNumber = strings.ToUpper(value)
	case TenantFieldEmail:
		if value != "" && !strings.Contains(value, "@") {
			return t, fmt.Errorf("%w: %s", common.ErrIncorrectField, name)
		}
		t.Email = value
	case TenantFieldPhone:
		t.Phone = value
	default:
		return t, fmt.Errorf("%w: unknown field %q", common.ErrIncorrectField, name)
	}
	return t, nil
}

// WithFields applies a patch atomically and requires the result to keep a
// name.
func (t Tenant) WithFields(patch map[string]string) (Tenant, error) {
	out := t
	for _, name := range sortedKeys(patch) {
		next, err := out.WithField(name, patch[name])
		if err != nil {
			return t, err
		}
		out = next
	}
	if out.Name == "" {
		return t, fmt.Errorf("%w: %s is required", common.ErrIncorrectField, TenantFieldName)
	}
	return out, nil
}
