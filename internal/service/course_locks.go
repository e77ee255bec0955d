package service

import "sync"

// courseLocks serializes the read-check-write window of the enrollment
// paths per course ID. Each Enroll/Drop/ForceEnroll must hold the lock
// for its course while it validates against the counter and commits, so
// two near-simultaneous requests for the last seat cannot both pass the
// capacity check and both commit.
//
// Locks are never evicted; the set of course IDs is small and bounded by
// the catalogue.
type courseLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCourseLocks() *courseLocks {
	return &courseLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given course ID and returns its
// unlock function.
func (c *courseLocks) Lock(courseID string) func() {
	c.mu.Lock()
	m, ok := c.locks[courseID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[courseID] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
