package codec

import (
	"testing"
	"time"
)

func TestControlQueueFIFOOrder(t *testing.T) {
	q := newControlQueue()
	for i := 0; i < 5; i++ {
		q.push(&controlMessage{kind: msgEncode})
	}
	for i := 0; i < 5; i++ {
		msg, ok := q.popBlocking()
		if !ok {
			t.Fatalf("pop %d: expected a message", i)
		}
		q.finishProcessing()
		if msg.kind != msgEncode {
			t.Fatalf("pop %d: unexpected kind", i)
		}
	}
	if q.size() != 0 {
		t.Fatalf("size = %d, want 0", q.size())
	}
}

func TestControlQueuePopBlocksUntilPush(t *testing.T) {
	q := newControlQueue()
	done := make(chan *controlMessage, 1)
	go func() {
		msg, ok := q.popBlocking()
		if ok {
			done <- msg
		} else {
			done <- nil
		}
	}()

	select {
	case <-done:
		t.Fatal("pop returned before any message was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.push(&controlMessage{kind: msgClose})
	select {
	case msg := <-done:
		if msg == nil || msg.kind != msgClose {
			t.Fatal("expected the pushed Close message")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestControlQueueStopWakesWaiters(t *testing.T) {
	q := newControlQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.popBlocking()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected popBlocking to return false after stop")
		}
	case <-time.After(time.Second):
		t.Fatal("stop did not wake the blocked popper")
	}
}

func TestControlQueueClearAndDrop(t *testing.T) {
	q := newControlQueue()
	q.push(&controlMessage{kind: msgEncode})
	q.push(&controlMessage{kind: msgEncode})

	dropped := q.clearAndDrop()
	if len(dropped) != 2 {
		t.Fatalf("clearAndDrop returned %d messages, want 2", len(dropped))
	}
	if q.size() != 0 {
		t.Fatalf("size after clearAndDrop = %d, want 0", q.size())
	}
}

func TestControlQueueWaitIdle(t *testing.T) {
	q := newControlQueue()
	q.push(&controlMessage{kind: msgEncode})

	idleReached := make(chan struct{})
	go func() {
		q.waitIdle()
		close(idleReached)
	}()

	select {
	case <-idleReached:
		t.Fatal("waitIdle returned before the message was processed")
	case <-time.After(20 * time.Millisecond):
	}

	msg, ok := q.popBlocking()
	if !ok || msg == nil {
		t.Fatal("expected to pop the queued message")
	}
	q.finishProcessing()

	select {
	case <-idleReached:
	case <-time.After(time.Second):
		t.Fatal("waitIdle did not unblock after processing finished")
	}
}
