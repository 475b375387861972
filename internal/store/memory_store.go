package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"patlogger/internal/domain"
)

// MemoryStore keeps records in-process. Used in tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	email       map[string]string // email -> user ID
	userOrder   []string
	inspections map[string]domain.Inspection
	blobs       map[string]domain.Blob
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		email:       make(map[string]string),
		inspections: make(map[string]domain.Inspection),
		blobs:       make(map[string]domain.Blob),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, exists := m.users[u.ID]; exists {
		delete(m.email, old.Email)
	} else {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		if u, ok := m.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

func (m *MemoryStore) UserCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	delete(m.users, id)
	delete(m.email, u.Email)
	for iid, insp := range m.inspections {
		if insp.OwnerID == id {
			delete(m.inspections, iid)
		}
	}
	return nil
}

func (m *MemoryStore) SaveInspection(i domain.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspections[i.ID] = i
	return nil
}

func (m *MemoryStore) GetInspection(id string) (domain.Inspection, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.inspections[strings.ToLower(id)]
	return i, ok, nil
}

func (m *MemoryStore) ListInspections(ownerID string) ([]domain.Inspection, error) {
	return m.filterInspections(ownerID, nil), nil
}

func (m *MemoryStore) SearchInspections(ownerID, query string) ([]domain.Inspection, error) {
	needle := strings.ToLower(query)
	return m.filterInspections(ownerID, func(i domain.Inspection) bool {
		return strings.Contains(strings.ToLower(i.Serial), needle)
	}), nil
}

func (m *MemoryStore) ListOverdueInspections(ownerID string, now time.Time) ([]domain.Inspection, error) {
	return m.filterInspections(ownerID, func(i domain.Inspection) bool {
		return i.Overdue(now)
	}), nil
}

func (m *MemoryStore) filterInspections(ownerID string, keep func(domain.Inspection) bool) []domain.Inspection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Inspection, 0, len(m.inspections))
	for _, i := range m.inspections {
		if ownerID != "" && i.OwnerID != ownerID {
			continue
		}
		if keep != nil && !keep(i) {
			continue
		}
		res = append(res, i)
	}
	sort.Slice(res, func(a, b int) bool {
		return res[a].CreatedAt.After(res[b].CreatedAt)
	})
	return res
}

func (m *MemoryStore) CountInspectionsByOwner(ownerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, i := range m.inspections {
		if i.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) DeleteInspection(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inspections, strings.ToLower(id))
	return nil
}

func (m *MemoryStore) TouchPDFAccess(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.inspections[strings.ToLower(id)]
	if !ok {
		return nil
	}
	i.PDFLastAccessedAt = &at
	m.inspections[i.ID] = i
	return nil
}

func (m *MemoryStore) SaveBlob(b domain.Blob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBlob(id string) (domain.Blob, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	return b, ok, nil
}

func (m *MemoryStore) DeleteBlob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

func (m *MemoryStore) ListBlobs() ([]domain.Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Blob, 0, len(m.blobs))
	for _, b := range m.blobs {
		res = append(res, b)
	}
	sort.Slice(res, func(a, b int) bool {
		return res[a].CreatedAt.After(res[b].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) ListOrphanedBlobs(olderThan time.Time) ([]domain.Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attached := make(map[string]struct{}, len(m.inspections))
	for _, i := range m.inspections {
		if i.ImageBlobID != "" {
			attached[i.ImageBlobID] = struct{}{}
		}
	}
	res := make([]domain.Blob, 0)
	for _, b := range m.blobs {
		if _, ok := attached[b.ID]; ok {
			continue
		}
		if b.CreatedAt.After(olderThan) {
			continue
		}
		res = append(res, b)
	}
	return res, nil
}
