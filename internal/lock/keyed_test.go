package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	const goroutines = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := k.Acquire("table-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines, counter)
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()
	releaseA := k.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := k.Acquire("b")
		releaseB()
		close(done)
	}()
	<-done // would deadlock if "b" waited on "a"
}

func TestEntriesAreCleanedUpAfterRelease(t *testing.T) {
	k := NewKeyed()
	release := k.Acquire("t")
	release()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries)
}
