package services

import (
	"sync"
	"time"
)

// Change is a status transition seen between two monitor rounds.
type Change struct {
	Name        string    `json:"service_name"`
	DisplayName string    `json:"service"`
	Previous    string    `json:"previous_status"`
	Current     string    `json:"current_status"`
	At          time.Time `json:"timestamp"`
}

// Tracker remembers the last status of every unit.
type Tracker struct {
	mu       sync.Mutex
	previous map[string]string
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{previous: make(map[string]string), now: time.Now}
}

// DetectStatusChanges compares records with the previous round. A unit seen
// for the first time produces no change.
func (t *Tracker) DetectStatusChanges(records []Record) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []Change
	now := t.now()
	for _, r := range records {
		prev, seen := t.previous[r.Name]
		if seen && prev != r.Status {
			changes = append(changes, Change{
				Name:        r.Name,
				DisplayName: r.DisplayName,
				Previous:    prev,
				Current:     r.Status,
				At:          now,
			})
		}
		t.previous[r.Name] = r.Status
	}
	return changes
}
