package codec

import (
	"context"
	"testing"
	"time"
)

func TestManagerEnforcesConcurrencyCap(t *testing.T) {
	m := NewManagerWithCap(2)
	defer m.Shutdown(context.Background())

	a, err := m.NewEncoderInstance(nil)
	if err != nil {
		t.Fatalf("instance 1: %v", err)
	}
	defer a.Close()

	b, err := m.NewEncoderInstance(nil)
	if err != nil {
		t.Fatalf("instance 2: %v", err)
	}
	defer b.Close()

	if _, err := m.NewEncoderInstance(nil); err == nil {
		t.Fatal("expected quota-exceeded once the concurrency cap is reached")
	}

	if got := m.LiveInstances(); got != 2 {
		t.Fatalf("live instances = %d, want 2", got)
	}
}

func TestManagerFreesSlotOnClose(t *testing.T) {
	m := NewManagerWithCap(1)
	defer m.Shutdown(context.Background())

	a, err := m.NewEncoderInstance(nil)
	if err != nil {
		t.Fatalf("instance 1: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		if b, err := m.NewEncoderInstance(nil); err == nil {
			b.Close()
			return
		} else {
			lastErr = err
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("slot never freed after close: %v", lastErr)
}

func TestManagerShutdownForceClosesOrphans(t *testing.T) {
	m := NewManagerWithCap(4)

	inst, err := m.NewEncoderInstance(nil)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	if err := inst.Configure(&EncoderConfig{CodecString: "avc1.42E01E", Width: 16, Height: 16}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Shutdown(ctx)

	if got := m.LiveInstances(); got != 0 {
		t.Fatalf("live instances after shutdown = %d, want 0", got)
	}
	if inst.State() != StateClosed {
		t.Errorf("orphaned instance state = %s, want closed", inst.State())
	}
}
