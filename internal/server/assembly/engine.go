// Package assembly builds the downloadable certificate of a consent record:
// tenant header, subject data, the legal text as it was shown, the audit
// block and the embedded signature.
//
// Layout is computed by Build independently of the PDF backend, so the
// pagination rules are testable with any Measurer.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/legaltext"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

const (
	ContentType   = "application/pdf"
	LocalLayout   = "02/01/2006 15:04:05 MST"
	signatureName = "signature"
)

const disclaimer = "This certificate was generated electronically. It documents a simple electronic signature: " +
	"the identity of the signer was asserted by the data controller, possession of the contact point was proven " +
	"with a one-time code and the handwritten signature was captured on the device stated above. " +
	"It is not a qualified or advanced electronic signature."

const unrenderedSignature = "The signature image could not be rendered. The original raster is retained in the consent record."

// Input is what a certificate is assembled from.
type Input struct {
	Tenant  models.Tenant
	Subject models.Subject
	Record  *models.ConsentRecord
}

// Document is an assembled certificate.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	Pages       int

	// SignatureRendered is false when the record has no raster or the
	// raster could not be decoded.
	SignatureRendered bool
}

type Engine struct {
	geo      Geometry
	loc      *time.Location
	now      func() time.Time
	log      logging.Logger
	compress bool
}

type Option func(*Engine)

// WithLocation sets the zone used for human-readable timestamps.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock replaces time.Now for the generation date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithGeometry(g Geometry) Option {
	return func(e *Engine) { e.geo = g }
}

// WithCompression toggles stream compression of the PDF; on by default.
func WithCompression(on bool) Option {
	return func(e *Engine) { e.compress = on }
}

func NewEngine(log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		geo: DefaultGeometry(),
		loc: time.UTC,
		now: time.Now,
		log: log.With("module", "assembly"),

		compress: true,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Assemble renders the certificate of in.Record. Records that are not
// accepted give common.ErrNotSigned and records breaking their invariants
// give common.ErrInconsistentRecord. A raster that cannot be decoded does
// not fail the call; the signature is replaced by a notice.
func (e *Engine) Assemble(ctx context.Context, in Input) (*Document, error) {
	now := e.now()
	cert, images, err := e.Certificate(ctx, in, now)
	if err != nil {
		return nil, err
	}

	pdf := newPDF(e.geo, now, cert.Title)
	pdf.SetCompression(e.compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	lay := Build(cert, pdfMeasurer{pdf: pdf, tr: tr}, e.geo)

	data, err := render(pdf, tr, lay, images)
	if err != nil {
		return nil, err
	}

	fields := snapshotFields(in)
	doc := &Document{
		Filename:          Filename(in.Record.Kind, fields.LastName, fields.FirstName, now.In(e.loc)),
		ContentType:       ContentType,
		Data:              data,
		Pages:             len(lay.Pages),
		SignatureRendered: lay.HasImage(),
	}
	e.log.Info(ctx, "certificate assembled", "record_id", in.Record.ID, "kind", in.Record.Kind, "pages", doc.Pages, "bytes", len(data))
	return doc, nil
}

// Certificate prepares the page content of in and the images it embeds.
func (e *Engine) Certificate(ctx context.Context, in Input, now time.Time) (Certificate, map[string][]byte, error) {
	rec := in.Record
	if rec == nil || !rec.Accepted {
		return Certificate{}, nil, common.ErrNotSigned
	}
	if err := rec.Validate(now); err != nil {
		return Certificate{}, nil, err
	}

	text, err := legaltext.Render(rec.TextVersion, rec.Kind, rec.TextParams)
	if err != nil {
		return Certificate{}, nil, err
	}

	cert := Certificate{
		TenantName:       in.Tenant.Name,
		TenantLines:      tenantLines(in.Tenant),
		Title:            legaltext.Title(rec.Kind) + " - signature certificate",
		SubjectHeading:   "Subject data",
		Subject:          subjectFields(snapshotFields(in)),
		LegalHeading:     "Text presented to the signer",
		LegalText:        strings.TrimSuffix(text, "\n"),
		AuditHeading:     "Signing details",
		Audit:            e.auditFields(rec),
		SignatureHeading: "Signature",
		Disclaimer:       disclaimer,
	}

	images := map[string][]byte{}
	switch {
	case rec.HasSignature():
		ras, err := PrepareRaster(rec.SignatureImage)
		if err != nil {
			if !errors.Is(err, common.ErrImageDecode) {
				return Certificate{}, nil, err
			}
			e.log.Warn(ctx, "signature raster could not be decoded", "record_id", rec.ID, "bytes", len(rec.SignatureImage), "error", err)
			cert.SignaturePlaceholder = unrenderedSignature
			break
		}
		images[signatureName] = ras.PNG
		cert.Signature = &SignatureImage{Name: signatureName, PixelW: ras.PixelW, PixelH: ras.PixelH}
		cert.SignaturePlaceholder = unrenderedSignature
	case rec.Method == models.MethodPaper:
		cert.SignaturePlaceholder = "No digital signature exists: this consent was signed on paper and recorded by the back office."
	default:
		cert.SignaturePlaceholder = "No digital signature exists for this record."
	}
	return cert, images, nil
}

func (e *Engine) auditFields(rec *models.ConsentRecord) []Field {
	method := "Digital signature verified by one-time code"
	if rec.Method == models.MethodPaper {
		method = "Paper consent entered by the back office"
	}
	fs := []Field{
		{"Signing method", method},
		{"Accepted at", rec.AcceptedAt.In(e.loc).Format(LocalLayout)},
	}
	if !rec.SignatureTimestamp.IsZero() {
		fs = append(fs, Field{"Signature timestamp (ISO 8601)", rec.SignatureTimestamp.UTC().Format(time.RFC3339Nano)})
	}
	if rec.DeviceClass != "" {
		fs = append(fs, Field{"Device class", string(rec.DeviceClass)})
	}
	if rec.ChannelAddress != "" {
		fs = append(fs, Field{"Code sent to", common.MaskAddress(rec.ChannelAddress)})
	}
	fs = append(fs, Field{"Text version", rec.TextVersion}, Field{"Record", rec.ID})
	if rec.AuditDigest != "" {
		fs = append(fs, Field{"Audit seal", rec.AuditDigest})
	}
	return fs
}

// snapshotFields prefers the fields stored with the signing event.
func snapshotFields(in Input) models.SubjectFields {
	if in.Record != nil && in.Record.TextParams.Subject != (models.SubjectFields{}) {
		return in.Record.TextParams.Subject
	}
	return in.Subject.Fields()
}

func subjectFields(f models.SubjectFields) []Field {
	v := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return legaltext.Placeholder
		}
		return s
	}
	return []Field{
		{"Name", v(f.FullName())},
		{"Fiscal code", v(f.FiscalCode)},
		{"Birth date", v(f.BirthDate)},
		{"Birth place", v(f.BirthPlace)},
		{"Address", v(f.Address)},
		{"City", v(f.City)},
		{"Phone", v(f.Phone)},
		{"E-mail", v(f.Email)},
		{"Notes", v(f.Notes)},
	}
}

func tenantLines(t models.Tenant) []string {
	var out []string
	if t.Address != "" {
		out = append(out, t.Address)
	}
	var contact []string
	if t.VATNumber != "" {
		contact = append(contact, fmt.Sprintf("VAT %s", t.VATNumber))
	}
	if t.Phone != "" {
		contact = append(contact, t.Phone)
	}
	if t.Email != "" {
		contact = append(contact, t.Email)
	}
	if len(contact) > 0 {
		out = append(out, strings.Join(contact, " - "))
	}
	return out
}
