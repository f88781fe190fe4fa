// Package device classifies the environment a signature was captured on.
// The result is audit metadata only and carries no security weight.
package device

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

// Classifier maps a host-specific environment descriptor (a browser
// user-agent, a native platform string) to a device class.
type Classifier interface {
	Classify(descriptor string) models.DeviceClass
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(descriptor string) models.DeviceClass

func (f ClassifierFunc) Classify(descriptor string) models.DeviceClass { return f(descriptor) }

var (
	tabletRE = regexp.MustCompile(`(?i)ipad|tablet|playbook|silk|kindle|nexus (7|9|10)\b|sm-t\d+`)
	mobileRE = regexp.MustCompile(`(?i)mobi|iphone|ipod|android|blackberry|bb10|iemobile|opera mini|windows phone|webos`)
)

// UserAgent classifies browser user-agent strings: tablet signatures win
// over mobile ones, anything else is desktop.
type UserAgent struct{}

func (UserAgent) Classify(ua string) models.DeviceClass {
	if tabletRE.MatchString(ua) {
		return models.DeviceTablet
	}
	// Android tablets omit "Mobile" from their user agent.
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		return models.DeviceTablet
	}
	if mobileRE.MatchString(ua) {
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}

// Explicit trusts descriptors that already name a class ("tablet",
// "mobile", "desktop") and falls back to Next otherwise. Native capture
// apps report their class this way.
type Explicit struct {
	Next Classifier
}

func (e Explicit) Classify(descriptor string) models.DeviceClass {
	c := models.DeviceClass(strings.ToLower(strings.TrimSpace(descriptor)))
	if c.Valid() {
		return c
	}
	if e.Next == nil {
		return models.DeviceDesktop
	}
	return e.Next.Classify(descriptor)
}

// Default handles both explicit classes and user-agent strings.
func Default() Classifier {
	return Explicit{Next: UserAgent{}}
}
