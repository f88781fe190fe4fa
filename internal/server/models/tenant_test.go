package models

import (
	"testing"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenant_WithFields(t *testing.T) {
	orig := Tenant{ID: "t1"}

	got, err := orig.WithFields(map[string]string{
		TenantFieldName:      " Studio Bella ",
		TenantFieldVATNumber: "it01234567890",
		TenantFieldEmail:     "info@studiobella.it",
	})
	require.NoError(t, err)
	assert.Equal(t, "Studio Bella", got.Name)
	assert.Equal(t, "IT01234567890", got.VATNumber)
	assert.Equal(t, "t1", got.ID)
	assert.Empty(t, orig.Name)
}

func TestTenant_WithFields_Errors(t *testing.T) {
	orig := Tenant{ID: "t1", Name: "Studio"}

	_, err := orig.WithFields(map[string]string{TenantFieldName: "  "})
	assert.ErrorIs(t, err, common.ErrIncorrectField)

	_, err = orig.WithFields(map[string]string{TenantFieldEmail: "nope"})
	assert.ErrorIs(t, err, common.ErrIncorrectField)

	got, err := orig.WithFields(map[string]string{"id": "t2"})
	assert.ErrorIs(t, err, common.ErrIncorrectField)
	assert.Equal(t, orig, got)

	_, err = Tenant{ID: "t1"}.WithFields(map[string]string{TenantFieldPhone: "+39 06 123"})
	assert.ErrorIs(t, err, common.ErrIncorrectField, "a new tenant needs a name")
}
