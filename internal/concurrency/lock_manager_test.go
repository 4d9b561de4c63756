package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockManagerSerializesSameKey(t *testing.T) {
	lm := NewLockManager()

	var (
		wg      sync.WaitGroup
		counter int
	)
	start := make(chan struct{})
	const workers = 64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			unlock := lm.Lock("same")
			current := counter
			counter = current + 1
			unlock()
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, workers, counter)
	assert.Equal(t, 0, lm.Len(), "released keys should be dropped")
}

func TestLockManagerIndependentKeys(t *testing.T) {
	lm := NewLockManager()

	unlockA := lm.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := lm.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, lm.Len())
	unlockA()
	assert.Equal(t, 0, lm.Len())
}
