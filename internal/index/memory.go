package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/triage-labs/acr-eval/internal/model"
)

// MemoryIndex is a brute-force in-memory index. Fine for the catalog's
// scale (a few thousand entries); everything is scanned per query.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	records   []model.EmbeddingRecord
	byID      map[string]int
}

var _ Index = (*MemoryIndex)(nil)

// NewMemory creates an empty in-memory index for vectors of the given
// dimension.
func NewMemory(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		byID:      make(map[string]int),
	}
}

// Upsert inserts records, replacing vectors for IDs already present.
// Replaced records keep their original insertion position, preserving
// the tie-break order.
func (m *MemoryIndex) Upsert(_ context.Context, records []model.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		if len(record.Vector) != m.dimension {
			return ErrDimensionMismatch
		}
		if pos, ok := m.byID[record.ID]; ok {
			m.records[pos] = record
			continue
		}
		m.byID[record.ID] = len(m.records)
		m.records = append(m.records, record)
	}
	return nil
}

// Count returns the number of stored records.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Nearest scans all records and returns the k closest by L2 distance,
// ascending, ties broken by insertion order.
func (m *MemoryIndex) Nearest(_ context.Context, vector []float32, k int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 || k <= 0 {
		return []Neighbor{}, nil
	}
	if len(vector) != m.dimension {
		return nil, ErrDimensionMismatch
	}

	neighbors := make([]Neighbor, len(m.records))
	for i, record := range m.records {
		neighbors[i] = Neighbor{ID: record.ID, Distance: l2Distance(vector, record.Vector)}
	}
	// SliceStable keeps insertion order among equal distances.
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
