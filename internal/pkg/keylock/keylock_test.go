package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	locks := New(8)

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("1:2")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("lost updates under key lock: got %d want 50", counter)
	}
}

func TestSameKeyMapsToSameStripe(t *testing.T) {
	locks := New(0)
	if len(locks.stripes) != defaultStripes {
		t.Fatalf("unexpected stripe count: %d", len(locks.stripes))
	}
	if locks.index("10:20") != locks.index("10:20") {
		t.Fatalf("key must map to a stable stripe")
	}
}
