package mocks

import (
	"context"
	"sort"
	"sync"

	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
)

// InMemorySearchRepo simula el índice de búsqueda. El upsert por orderId
// reproduce la semántica del índice real: reindexar no duplica.
type InMemorySearchRepo struct {
	Docs map[string]searchDomain.OrderDocument

	// FailTimes hace fallar los primeros N BulkUpsert con Err.
	FailTimes int
	Err       error

	bulkCalls int
	findCalls int
	mu        sync.Mutex
}

func NewInMemorySearchRepo() *InMemorySearchRepo {
	return &InMemorySearchRepo{
		Docs: make(map[string]searchDomain.OrderDocument),
	}
}

var _ searchDomain.SearchRepository = (*InMemorySearchRepo)(nil)

func (r *InMemorySearchRepo) BulkUpsert(ctx context.Context, docs []searchDomain.OrderDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bulkCalls++
	if r.Err != nil && r.bulkCalls <= r.FailTimes {
		return r.Err
	}

	for _, doc := range docs {
		r.Docs[doc.OrderID] = doc
	}
	return nil
}

func (r *InMemorySearchRepo) Find(ctx context.Context, f searchDomain.Filter) ([]searchDomain.OrderDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findCalls++
	var out []searchDomain.OrderDocument
	for _, doc := range r.Docs {
		if f.UserID != nil && doc.UserID != *f.UserID {
			continue
		}
		if f.SkuID != nil && doc.SkuID != *f.SkuID {
			continue
		}
		if f.CorrelationID != nil && doc.CorrelationID != *f.CorrelationID {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// BulkCalls devuelve cuántas veces se llamó a BulkUpsert.
func (r *InMemorySearchRepo) BulkCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bulkCalls
}

// FindCalls devuelve cuántas veces se llamó a Find.
func (r *InMemorySearchRepo) FindCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

// ------------------- Analytics -------------------

// CapturingAnalytics guarda los lotes enviados al destino analítico.
type CapturingAnalytics struct {
	Batches [][]searchDomain.OrderDocument
	Err     error
	mu      sync.Mutex
}

func (a *CapturingAnalytics) LogBatch(ctx context.Context, docs []searchDomain.OrderDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Err != nil {
		return a.Err
	}
	a.Batches = append(a.Batches, docs)
	return nil
}

var _ searchDomain.AnalyticsRepository = (*CapturingAnalytics)(nil)
