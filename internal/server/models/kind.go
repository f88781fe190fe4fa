// Package models defines the consent domain entities persisted by the
// registry and exchanged between the orchestrator, the assembly engine and
// the transport layer.
package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/studiosign/internal/common"
)

// DocumentKind identifies which legal document a consent refers to.
type DocumentKind string

const (
	KindPrivacy         DocumentKind = "PRIVACY"
	KindInformedConsent DocumentKind = "INFORMED_CONSENT"
)

// DocumentKinds lists every supported kind in a stable order.
var DocumentKinds = []DocumentKind{KindPrivacy, KindInformedConsent}

// ParseDocumentKind accepts the canonical names case-insensitively, plus the
// short forms "privacy" and "consent".
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindPrivacy):
		return KindPrivacy, nil
	case string(KindInformedConsent), "CONSENT", "INFORMED-CONSENT":
		return KindInformedConsent, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownDocumentKind, s)
}

// Slug is the lower-case token used in filenames and URLs.
func (k DocumentKind) Slug() string {
	switch k {
	case KindPrivacy:
		return "privacy"
	case KindInformedConsent:
		return "informed-consent"
	}
	return strings.ToLower(string(k))
}

// DeviceClass is the coarse environment a signature was captured on.
// It is audit metadata only.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
)

// Valid reports whether d is one of the known classes.
func (d DeviceClass) Valid() bool {
	switch d {
	case DeviceDesktop, DeviceMobile, DeviceTablet:
		return true
	}
	return false
}

// SigningMethod tells how an acceptance was collected.
type SigningMethod string

const (
	// MethodDigital is an OTP-verified signature captured on a device.
	MethodDigital SigningMethod = "digital"
	// MethodPaper is a legacy paper consent entered by the back office.
	// It never carries a signature raster.
	MethodPaper SigningMethod = "paper"
)
