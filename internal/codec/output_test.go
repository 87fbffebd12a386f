package codec

import (
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu       sync.Mutex
	received []Delivery
	refuse   bool
}

func (s *recordingSink) Deliver(d Delivery) bool {
	if s.refuse {
		return false
	}
	s.mu.Lock()
	s.received = append(s.received, d)
	s.mu.Unlock()
	return true
}

func waitForCount(t *testing.T, get func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if get() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for count = %d, got %d", want, get())
}

func TestOutputChannelOrdering(t *testing.T) {
	sink := &recordingSink{}
	oc := newOutputChannel(sink)

	for i := 0; i < 10; i++ {
		idx := int64(i)
		oc.emit(Delivery{Encoded: &EncodedOutput{FrameIndex: idx}})
	}
	oc.close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.received) != 10 {
		t.Fatalf("received %d deliveries, want 10", len(sink.received))
	}
	for i, d := range sink.received {
		if d.Encoded.FrameIndex != int64(i) {
			t.Fatalf("delivery %d out of order: frame_index=%d", i, d.Encoded.FrameIndex)
		}
	}
}

func TestOutputChannelPendingCounterReachesZero(t *testing.T) {
	sink := &recordingSink{}
	oc := newOutputChannel(sink)

	for i := 0; i < 5; i++ {
		oc.emit(Delivery{Encoded: &EncodedOutput{}})
	}
	waitForCount(t, func() int { return int(oc.pending.Load()) }, 0)
	oc.close()
}

func TestOutputChannelOrphanDropsDecrementsCounter(t *testing.T) {
	sink := &recordingSink{refuse: true}
	oc := newOutputChannel(sink)

	oc.emit(Delivery{Encoded: &EncodedOutput{}})
	waitForCount(t, func() int { return int(oc.pending.Load()) }, 0)

	sink.mu.Lock()
	n := len(sink.received)
	sink.mu.Unlock()
	if n != 0 {
		t.Fatalf("orphaned delivery should not be recorded as received, got %d", n)
	}
	oc.close()
}

func TestDiscardSinkAlwaysOrphans(t *testing.T) {
	oc := newOutputChannel(nil)
	oc.emit(Delivery{Encoded: &EncodedOutput{}})
	waitForCount(t, func() int { return int(oc.pending.Load()) }, 0)
	oc.close()
}
