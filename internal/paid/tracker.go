// Package paid tracks which months' taxes the user has marked as paid.
package paid

import (
	"sort"
	"sync"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

// Tracker is a set of month keys, safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	months map[core.MonthKey]struct{}
}

func NewTracker(months ...core.MonthKey) *Tracker {
	t := &Tracker{months: make(map[core.MonthKey]struct{}, len(months))}
	for _, m := range months {
		t.months[m] = struct{}{}
	}
	return t
}

// MarkPaid reports whether the set changed.
func (t *Tracker) MarkPaid(m core.MonthKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.months[m]; ok {
		return false
	}
	t.months[m] = struct{}{}
	return true
}

// MarkUnpaid reports whether the set changed.
func (t *Tracker) MarkUnpaid(m core.MonthKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.months[m]; !ok {
		return false
	}
	delete(t.months, m)
	return true
}

func (t *Tracker) IsPaid(m core.MonthKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.months[m]
	return ok
}

// All returns the paid months in ascending order.
func (t *Tracker) All() []core.MonthKey {
	t.mu.RLock()
	out := make([]core.MonthKey, 0, len(t.months))
	for m := range t.months {
		out = append(out, m)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Replace swaps the whole set, as done after a load.
func (t *Tracker) Replace(months []core.MonthKey) {
	next := make(map[core.MonthKey]struct{}, len(months))
	for _, m := range months {
		next[m] = struct{}{}
	}
	t.mu.Lock()
	t.months = next
	t.mu.Unlock()
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.months)
}
