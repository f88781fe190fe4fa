package grpc

import (
	"time"

	"github.com/dmitrijs2005/studiosign/internal/api"
	"github.com/dmitrijs2005/studiosign/internal/server/capture"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/server/otp"
)

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func toSessionView(v otp.View) api.SessionView {
	return api.SessionView{
		ID:                v.ID,
		SubjectID:         v.Key.SubjectID,
		Kind:              string(v.Key.Kind),
		State:             string(v.State),
		MaskedAddress:     v.MaskedAddress,
		HasAddress:        v.HasAddress,
		Sending:           v.Sending,
		HasSignature:      v.HasSignature,
		AttemptsRemaining: v.AttemptsRemaining,
		CodeExpiresAt:     timePtr(v.CodeExpiresAt),
	}
}

func toSummary(s models.ConsentSummary) api.ConsentSummary {
	return api.ConsentSummary{
		RecordID:      s.RecordID,
		SubjectID:     s.SubjectID,
		Kind:          string(s.Kind),
		Method:        string(s.Method),
		Accepted:      s.Accepted,
		AcceptedAt:    timePtr(s.AcceptedAt),
		HasSignature:  s.HasSignature,
		DeviceClass:   string(s.DeviceClass),
		MaskedAddress: s.MaskedAddress,
	}
}

func toSummaries(in []models.ConsentSummary) []api.ConsentSummary {
	out := make([]api.ConsentSummary, 0, len(in))
	for _, s := range in {
		out = append(out, toSummary(s))
	}
	return out
}

func toSubject(s models.Subject) api.Subject {
	out := api.Subject{
		ID:                s.ID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		FiscalCode:        s.FiscalCode,
		BirthPlace:        s.BirthPlace,
		Address:           s.Address,
		City:              s.City,
		Phone:             s.Phone,
		Email:             s.Email,
		Notes:             s.Notes,
		PrivacyAccepted:   s.PrivacyAccepted,
		PrivacyAcceptedAt: timePtr(s.PrivacyAcceptedAt),
		ConsentAccepted:   s.ConsentAccepted,
		ConsentAcceptedAt: timePtr(s.ConsentAcceptedAt),
	}
	if !s.BirthDate.IsZero() {
		out.BirthDate = s.BirthDate.Format(models.BirthDateLayout)
	}
	return out
}

func toTenant(t models.Tenant) api.Tenant {
	return api.Tenant{
		ID:        t.ID,
		Name:      t.Name,
		Address:   t.Address,
		VATNumber: t.VATNumber,
		Email:     t.Email,
		Phone:     t.Phone,
	}
}

func toStrokes(in [][]api.Point) [][]capture.Point {
	out := make([][]capture.Point, 0, len(in))
	for _, st := range in {
		pts := make([]capture.Point, 0, len(st))
		for _, p := range st {
			pts = append(pts, capture.Point{X: p.X, Y: p.Y, T: p.T})
		}
		out = append(out, pts)
	}
	return out
}
