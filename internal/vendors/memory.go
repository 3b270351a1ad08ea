package vendors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// MemoryStore is an in-process vendor directory including the delivery
// ledger. It backs tests of this and dependent packages.
type MemoryStore struct {
	mu        sync.Mutex
	vendors   map[int64]Vendor
	delivered map[int64]bool
	nextID    int64
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vendors: make(map[int64]Vendor), delivered: make(map[int64]bool)}
}

func (m *MemoryStore) FindByID(_ context.Context, id int64) (Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
	}
	return v, nil
}

func (m *MemoryStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vendors[id]
	return ok, nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vendors {
		if strings.EqualFold(v.Email, strings.TrimSpace(email)) {
			return v, nil
		}
	}
	return Vendor{}, fmt.Errorf("%w: vendor email %s", shared.ErrNotFound, email)
}

func (m *MemoryStore) Create(_ context.Context, v Vendor) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vendors {
		if strings.EqualFold(existing.Email, v.Email) {
			return 0, fmt.Errorf("%w: vendor email %s", shared.ErrDuplicate, v.Email)
		}
	}
	m.nextID++
	v.ID = m.nextID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	m.vendors[v.ID] = v
	return v.ID, nil
}

func (m *MemoryStore) UpdateContact(_ context.Context, id int64, req UpdateVendorRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
	}
	v.Name, v.Email, v.Phone, v.Category, v.Provisioned = req.Name, req.Email, req.Phone, req.Category, false
	v.UpdatedAt = time.Now()
	m.vendors[id] = v
	return nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Vendor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Vendor
	search := strings.ToLower(f.Search)
	for _, v := range m.vendors {
		if search != "" && !strings.Contains(strings.ToLower(v.Name), search) && !strings.Contains(strings.ToLower(v.Email), search) {
			continue
		}
		if f.Category != "" && (v.Category == nil || *v.Category != f.Category) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

// ApplyDelivery mirrors the PostgreSQL ledger semantics.
func (m *MemoryStore) ApplyDelivery(_ context.Context, d Delivery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delivered[d.PurchaseOrderID] {
		return false, nil
	}
	v, ok := m.vendors[d.VendorID]
	if !ok {
		return false, fmt.Errorf("%w: vendor %d", shared.ErrNotFound, d.VendorID)
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}
	v.Accumulate(d)
	m.vendors[v.ID] = v
	m.delivered[d.PurchaseOrderID] = true
	return true, nil
}

// Count returns the number of stored vendors.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vendors)
}
