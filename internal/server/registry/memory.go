package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type pairKey struct {
	tenantID, subjectID string
	kind                models.DocumentKind
}

// Memory is a process-local Registry used when no database is configured.
// Values are copied in and out so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	tenants  map[string]models.Tenant
	subjects map[string]models.Subject
	current  map[pairKey]models.ConsentRecord
	history  map[pairKey][]models.ConsentRecord
}

func NewMemory() *Memory {
	return &Memory{
		tenants:  make(map[string]models.Tenant),
		subjects: make(map[string]models.Subject),
		current:  make(map[pairKey]models.ConsentRecord),
		history:  make(map[pairKey][]models.ConsentRecord),
	}
}

func (m *Memory) GetTenant(_ context.Context, tenantID string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (m *Memory) SaveTenant(_ context.Context, t *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = *t
	return nil
}

func (m *Memory) GetSubject(_ context.Context, tenantID, subjectID string) (*models.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[subjectID]
	if !ok || s.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

// SaveSubject keeps the stored acceptance flags, like the SQL store.
func (m *Memory) SaveSubject(_ context.Context, s *models.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *s
	if prev, ok := m.subjects[s.ID]; ok {
		if prev.TenantID != s.TenantID {
			return common.ErrorNotFound
		}
		next.PrivacyAccepted, next.PrivacyAcceptedAt = prev.PrivacyAccepted, prev.PrivacyAcceptedAt
		next.ConsentAccepted, next.ConsentAcceptedAt = prev.ConsentAccepted, prev.ConsentAcceptedAt
		next.CreatedAt = prev.CreatedAt
	} else {
		next.PrivacyAccepted, next.PrivacyAcceptedAt = false, time.Time{}
		next.ConsentAccepted, next.ConsentAcceptedAt = false, time.Time{}
	}
	m.subjects[s.ID] = next
	return nil
}

func (m *Memory) GetConsent(_ context.Context, tenantID, subjectID string, kind models.DocumentKind) (*models.ConsentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.current[pairKey{tenantID, subjectID, kind}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyRecord(r), nil
}

func (m *Memory) SaveConsent(_ context.Context, r *models.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subjects[r.SubjectID]
	if !ok || s.TenantID != r.TenantID {
		return common.ErrorNotFound
	}
	key := pairKey{r.TenantID, r.SubjectID, r.Kind}
	rec := *copyRecord(*r)
	m.current[key] = rec
	m.history[key] = append(m.history[key], rec)
	if r.Accepted {
		m.subjects[r.SubjectID] = s.WithAcceptance(r.Kind, r.AcceptedAt)
	}
	return nil
}

func (m *Memory) ListSummaries(_ context.Context, tenantID, subjectID string) ([]models.ConsentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ConsentSummary
	for k, r := range m.current {
		if k.tenantID == tenantID && k.subjectID == subjectID {
			out = append(out, r.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (m *Memory) History(_ context.Context, tenantID, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.history[pairKey{tenantID, subjectID, kind}]
	out := make([]models.ConsentSummary, 0, len(events))
	for _, r := range events {
		out = append(out, r.Summary())
	}
	return out, nil
}

func copyRecord(r models.ConsentRecord) *models.ConsentRecord {
	r.SignatureImage = append([]byte(nil), r.SignatureImage...)
	if len(r.SignatureImage) == 0 {
		r.SignatureImage = nil
	}
	return &r
}
