package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseLocksSerializesSameCourse(t *testing.T) {
	locks := newCourseLocks()

	const goroutines = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			unlock := locks.Lock("cs101")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestCourseLocksIndependentCourses(t *testing.T) {
	locks := newCourseLocks()

	unlockA := locks.Lock("cs101")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("math200")
		unlockB()
		close(done)
	}()

	// A held lock on one course must not block another course.
	<-done
	unlockA()
}
