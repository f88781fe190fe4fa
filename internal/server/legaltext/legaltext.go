// Package legaltext renders the legal documents shown to signers.
//
// Rendering is a pure function of its parameters. Certificates rebuild the
// text a signer saw from the parameters stored with the signing event, so
// a template must never change once its version has been used; add a new
// version instead.
package legaltext

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

// Version is the template set used for new signing events.
const Version = "legaltext-v1"

// Placeholder stands in for any empty field.
const Placeholder = "________________"

//go:embed templates/*.tmpl
var templateFS embed.FS

type templateSet struct {
	privacy *template.Template
	consent *template.Template
}

var versions = map[string]templateSet{
	"legaltext-v1": mustLoad("privacy.v1.tmpl", "consent.v1.tmpl"),
}

var funcs = template.FuncMap{
	"field": func(v string) string {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			return Placeholder
		}
		return v
	},
}

func mustLoad(privacy, consent string) templateSet {
	load := func(name string) *template.Template {
		return template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").ParseFS(templateFS, "templates/"+name))
	}
	return templateSet{privacy: load(privacy), consent: load(consent)}
}

type consentData struct {
	models.SubjectFields
	FullName string
}

// RenderPrivacyText renders the current privacy notice for a tenant.
func RenderPrivacyText(tenantName string) (string, error) {
	return render(versions[Version].privacy, struct{ TenantName string }{tenantName})
}

// RenderConsentText renders the current informed-consent text for a subject.
func RenderConsentText(f models.SubjectFields) (string, error) {
	return render(versions[Version].consent, consentData{SubjectFields: f, FullName: f.FullName()})
}

// RenderCurrent renders kind with the current template version, the one
// new signing events record as their TextVersion.
func RenderCurrent(kind models.DocumentKind, p models.TextParams) (string, error) {
	switch kind {
	case models.KindPrivacy:
		return RenderPrivacyText(p.TenantName)
	case models.KindInformedConsent:
		return RenderConsentText(p.Subject)
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownDocumentKind, kind)
}

// Render rebuilds the text of kind exactly as a given template version
// produced it.
func Render(version string, kind models.DocumentKind, p models.TextParams) (string, error) {
	set, ok := versions[version]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownTextVersion, version)
	}
	switch kind {
	case models.KindPrivacy:
		return render(set.privacy, struct{ TenantName string }{p.TenantName})
	case models.KindInformedConsent:
		return render(set.consent, consentData{SubjectFields: p.Subject, FullName: p.Subject.FullName()})
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownDocumentKind, kind)
}

// Title is the heading used for kind in certificates and review screens.
func Title(kind models.DocumentKind) string {
	switch kind {
	case models.KindPrivacy:
		return "Privacy notice"
	case models.KindInformedConsent:
		return "Informed consent"
	}
	return string(kind)
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return Normalize(b.String()), nil
}

// Normalize converts line endings to \n, strips trailing blanks from each
// line and ends the text with exactly one newline.
func Normalize(in string) string {
	s := strings.ReplaceAll(in, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
