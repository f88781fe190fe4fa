package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/api"
	"github.com/dmitrijs2005/studiosign/internal/filex"
	"github.com/dmitrijs2005/studiosign/internal/netx"
)

var downloadURL = netx.DownloadPresignedURL

// List prints the consent overview of a subject.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("list <subject>")
	}
	items, err := a.client.ListConsents(ctx, args[0])
	if err != nil {
		return err
	}
	a.printSummaries(items)
	return nil
}

// History prints every acceptance of one document, newest first.
func (a *App) History(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("history <subject> <kind>")
	}
	events, err := a.client.History(ctx, args[0], strings.ToUpper(args[1]))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.out, "No acceptances recorded")
		return nil
	}
	a.printSummaries(events)
	return nil
}

func (a *App) printSummaries(items []api.ConsentSummary) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tACCEPTED\tAT\tMETHOD\tDEVICE\tSENT TO")
	for _, it := range items {
		accepted := "no"
		if it.Accepted {
			accepted = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Kind, accepted, formatTime(it.AcceptedAt), dash(it.Method), dash(it.DeviceClass), dash(it.MaskedAddress))
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Download saves the certificate of a signed document to the output
// directory. An archived copy link, when the server has one, is remembered
// for fetch.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("download <subject> <kind>")
	}
	cert, err := a.client.DownloadCertificate(ctx, args[0], strings.ToUpper(args[1]))
	if err != nil {
		return err
	}

	saved, err := a.save(cert.Filename, cert.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", saved, len(cert.Data))

	if cert.URL != "" {
		a.lastURL = cert.URL
		fmt.Fprintln(a.out, "Archived copy available, use 'fetch' to download it")
	}
	return nil
}

// Fetch downloads an archived certificate from a presigned link, the last
// one reported by download when no link is given.
func (a *App) Fetch(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usageError("fetch [url]")
	}
	link := a.lastURL
	if len(args) == 1 {
		link = args[0]
	}
	if link == "" {
		return errors.New("no archived copy link, run download first")
	}

	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "certificate.pdf"
	}

	data, err := downloadURL(ctx, link)
	if err != nil {
		return err
	}
	saved, err := a.save("archived_"+name, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", saved, len(data))
	return nil
}

func (a *App) save(name string, data []byte) (string, error) {
	dir, err := filex.EnsureSubdDir(a.config.OutputDir)
	if err != nil {
		return "", err
	}
	return filex.SaveFile(dir, name, data)
}

// Paper registers a consent collected on paper. Admin tokens only.
func (a *App) Paper(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageError("paper <subject> <kind> <yyyy-mm-dd>")
	}
	day, err := time.ParseInLocation("2006-01-02", args[2], time.Local)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	sum, err := a.client.RecordPaperConsent(ctx, args[0], strings.ToUpper(args[1]), day)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Paper consent recorded: %s %s on %s\n", sum.SubjectID, sum.Kind, formatTime(sum.AcceptedAt))
	return nil
}

// Subject creates a subject (no id) or updates one. Admin tokens only.
func (a *App) Subject(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usageError("subject [id]")
	}
	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	fields, err := getFields(a.reader, "Subject fields (first_name, last_name, fiscal_code, birth_date, birth_place, address, city, phone, email, notes)", a.out)
	if err != nil {
		return err
	}
	if len(fields) == 0 && id == "" {
		return errors.New("no fields given")
	}

	s, err := a.client.UpsertSubject(ctx, id, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Subject %s: %s %s\n", s.ID, s.FirstName, s.LastName)
	return nil
}

// Tenant sets the name and contacts of the token's tenant. Admin tokens only.
func (a *App) Tenant(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageError("tenant")
	}

	fields, err := getFields(a.reader, "Tenant fields (name, address, vat_number, email, phone)", a.out)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return errors.New("no fields given")
	}

	t, err := a.client.UpsertTenant(ctx, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Tenant %s: %s\n", t.ID, t.Name)
	return nil
}
