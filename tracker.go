package vmd

import (
	"sync"
)

type availability int

const (
	availabilityUnknown availability = iota
	availabilityNo
	availabilityYes
)

// AvailabilityTracker remembers the last seen availability of each centre
// between polls.
type AvailabilityTracker struct {
	last  map[string]availability
	mutex *sync.Mutex
}

func NewAvailabilityTracker() *AvailabilityTracker {
	return &AvailabilityTracker{
		last:  make(map[string]availability),
		mutex: &sync.Mutex{},
	}
}

// Update records the current availability of centre and reports whether it
// changed, and whether it changed to available. The first observation of a
// centre is never a change.
func (t *AvailabilityTracker) Update(centre *Centre) (changed bool, becameAvailable bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	current := availabilityNo
	if centre.IsAvailable() {
		current = availabilityYes
	}

	id := centre.ID()
	previous := t.last[id]
	t.last[id] = current

	if previous == availabilityUnknown || previous == current {
		return false, false
	}

	return true, current == availabilityYes
}

func (t *AvailabilityTracker) Tracked() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ids := make([]string, 0, len(t.last))
	for id := range t.last {
		ids = append(ids, id)
	}
	return ids
}

func (t *AvailabilityTracker) Forget(id string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.last, id)
}
