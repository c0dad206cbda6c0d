package kpi

import (
	"slices"
	"sync"
	"time"
)

type dayKey struct {
	driver string
	day    time.Time
}

// MemoryStore keeps daily records in a map. It is the default store of the
// kpi metrics sink.
type MemoryStore struct {
	mu   sync.RWMutex
	days map[dayKey]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[dayKey]Record)}
}

func (s *MemoryStore) Add(r Record) error {
	k := dayKey{driver: r.DriverID, day: Day(r.Date)}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.days[k]
	if !ok {
		cur = Record{DriverID: k.driver, Date: k.day}
	}
	cur.Merge(r)
	s.days[k] = cur
	return nil
}

// Query returns the driver's records for the days in [start, end], oldest
// first.
func (s *MemoryStore) Query(driverID string, start, end time.Time) ([]Record, error) {
	from, to := Day(start), Day(end)
	s.mu.RLock()
	var res []Record
	for k, r := range s.days {
		if k.driver == driverID && !k.day.Before(from) && !k.day.After(to) {
			res = append(res, r)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(res, func(a, b Record) int { return a.Date.Compare(b.Date) })
	return res, nil
}
