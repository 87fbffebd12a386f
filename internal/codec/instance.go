package codec

import (
	"sync"
	"sync/atomic"
)

// InstanceState is the public facade state from §4.5.
type InstanceState string

const (
	StateUnconfigured InstanceState = "unconfigured"
	StateConfigured   InstanceState = "configured"
	StateClosed       InstanceState = "closed"
)

// saturationThreshold and hardQueueLimit are the two backpressure lines from
// §4.5: soft saturation is observability-only, the hard ceiling rejects.
const (
	saturationThreshold = 16
	hardQueueLimit      = 64
)

// Instance is the facade from §4.5/§6.1: it validates public calls,
// assembles configs, owns the worker and its control queue, and exposes the
// observable counters a host polls for backpressure.
type Instance struct {
	mu    sync.Mutex
	kind  kindTag
	state InstanceState

	queue *controlQueue
	out   *outputChannel
	wk    *worker

	queueSize      atomic.Int64
	pendingFlushes []*flushToken

	dequeueCh chan struct{}

	// owner is non-nil only for instances created through a Manager, which
	// registers itself here so Close() can self-unregister instead of
	// waiting for Shutdown to find a stale entry.
	owner *instanceRegistry

	// releaseSlot is non-nil only for instances created through a Manager; it
	// returns the instance's reserved concurrency-cap slot on Close.
	releaseSlot func()
}

// buildInstance constructs the queue/output-channel/worker trio and wires
// the dequeue hook but does not launch the worker goroutine; callers choose
// how the worker is scheduled (a bare goroutine for a standalone instance, a
// workerpool slot for one created through a Manager).
func buildInstance(kind kindTag, sink Sink) *Instance {
	q := newControlQueue()
	oc := newOutputChannel(sink)
	wk := newWorker(kind, q, oc)

	inst := &Instance{
		kind:      kind,
		state:     StateUnconfigured,
		queue:     q,
		out:       oc,
		wk:        wk,
		dequeueCh: make(chan struct{}, 1),
	}
	wk.onDequeue = inst.onDequeue
	return inst
}

func newInstance(kind kindTag, sink Sink) *Instance {
	inst := buildInstance(kind, sink)
	inst.wk.start()
	return inst
}

// NewEncoderInstance creates an instance bound to deliver EncodedOutput to
// sink. sink may be nil, in which case every delivery is orphaned (matching
// the host-teardown contract of §4.6).
func NewEncoderInstance(sink Sink) *Instance { return newInstance(kindEncoder, sink) }

// NewDecoderInstance creates an instance bound to deliver DecodedOutput to
// sink.
func NewDecoderInstance(sink Sink) *Instance { return newInstance(kindDecoder, sink) }

func (i *Instance) onDequeue() {
	i.queueSize.Add(-1)
	select {
	case i.dequeueCh <- struct{}{}:
	default:
	}
}

// DequeueNotifications delivers a coalesced notification every time the
// worker dequeues a counted message; a host can poll queue_size in response
// instead of busy-waiting.
func (i *Instance) DequeueNotifications() <-chan struct{} { return i.dequeueCh }

// State returns the current facade state.
func (i *Instance) State() InstanceState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// QueueSize returns enqueued-minus-dequeued for counted messages; never
// negative (§8).
func (i *Instance) QueueSize() int64 { return i.queueSize.Load() }

// CodecSaturated reports the soft backpressure line from §4.5.
func (i *Instance) CodecSaturated() bool { return i.queueSize.Load() >= saturationThreshold }

// PendingResults surfaces the output channel's in-flight delivery count,
// i.e. pending_chunks/pending_results from §4.6/§6.1.
func (i *Instance) PendingResults() int64 { return i.out.pending.Load() }

// Configure validates cfg synchronously and, on success, transitions to
// configured and hands the (possibly reconfiguring) codec open to the
// worker. cfg must be *EncoderConfig for an encoder instance or
// *DecoderConfig for a decoder instance.
func (i *Instance) Configure(cfg any) error {
	i.mu.Lock()
	if i.state == StateClosed {
		i.mu.Unlock()
		return newError(ErrInvalidState, "configure")
	}

	switch i.kind {
	case kindEncoder:
		c, ok := cfg.(*EncoderConfig)
		if !ok {
			i.mu.Unlock()
			return newError(ErrValidation, "configure").WithContext("expected *EncoderConfig")
		}
		if err := c.normalize(); err != nil {
			i.mu.Unlock()
			return newError(ErrValidation, "configure").WithCause(err)
		}
	case kindDecoder:
		c, ok := cfg.(*DecoderConfig)
		if !ok {
			i.mu.Unlock()
			return newError(ErrValidation, "configure").WithContext("expected *DecoderConfig")
		}
		if err := c.normalize(); err != nil {
			i.mu.Unlock()
			return newError(ErrValidation, "configure").WithCause(err)
		}
	}

	i.queueSize.Store(0)
	i.state = StateConfigured
	i.mu.Unlock()

	i.queue.push(&controlMessage{kind: msgConfigure, configureParams: cfg})
	return nil
}

// Encode validates frame and opts synchronously, then enqueues an Encode
// message. Only valid on an encoder instance.
func (i *Instance) Encode(frame *FrameBuffer, opts EncodeOptions) error {
	if i.kind != kindEncoder {
		return newError(ErrInvalidState, "encode").WithContext("instance is a decoder")
	}
	if err := i.admitCountedMessage("encode"); err != nil {
		return err
	}
	if err := frame.Validate(); err != nil {
		i.queueSize.Add(-1)
		return newError(ErrValidation, "encode").WithCause(err)
	}
	i.queue.push(&controlMessage{kind: msgEncode, frame: frame, encodeOpts: opts})
	return nil
}

// Decode validates packet synchronously, then enqueues a Decode message.
// Only valid on a decoder instance.
func (i *Instance) Decode(packet *PacketBuffer) error {
	if i.kind != kindDecoder {
		return newError(ErrInvalidState, "decode").WithContext("instance is an encoder")
	}
	if err := i.admitCountedMessage("decode"); err != nil {
		return err
	}
	if packet == nil || len(packet.Data) == 0 {
		i.queueSize.Add(-1)
		return newError(ErrValidation, "decode").WithContext("empty packet")
	}
	i.queue.push(&controlMessage{kind: msgDecode, packet: packet})
	return nil
}

// admitCountedMessage applies the shared state/backpressure gate for
// encode/decode/flush: invalid-state if not configured, quota-exceeded
// above the hard ceiling, otherwise reserves a queue_size slot.
func (i *Instance) admitCountedMessage(op string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateConfigured {
		return newError(ErrInvalidState, op)
	}
	if i.queueSize.Load() > hardQueueLimit {
		return newError(ErrQuotaExceeded, op)
	}
	i.queueSize.Add(1)
	return nil
}

// Flush pushes a Flush message with a fresh completion token and returns it;
// callers await completion with Wait(). Resolves as a failure if codec
// reinitialization fails.
func (i *Instance) Flush() (*flushToken, error) {
	if err := i.admitCountedMessage("flush"); err != nil {
		return nil, err
	}
	token := newFlushToken()

	i.mu.Lock()
	i.pendingFlushes = append(i.pendingFlushes, token)
	i.mu.Unlock()

	i.queue.push(&controlMessage{kind: msgFlush, flushToken: token})
	return token, nil
}

// Reset clears codec_valid, drops the queue, rejects outstanding flush
// promises with aborted, and returns counters to zero, per §4.5.
func (i *Instance) Reset() error {
	i.mu.Lock()
	if i.state == StateClosed {
		i.mu.Unlock()
		return newError(ErrInvalidState, "reset")
	}
	dropped := i.queue.clearAndDrop()
	pending := i.pendingFlushes
	i.pendingFlushes = nil
	i.state = StateUnconfigured
	i.mu.Unlock()

	i.queueSize.Store(0)

	abortErr := newError(ErrAborted, "reset")
	for _, m := range dropped {
		if m.flushToken != nil {
			m.flushToken.resolve(abortErr)
		}
	}
	for _, t := range pending {
		t.resolve(abortErr)
	}

	i.queue.push(&controlMessage{kind: msgReset})
	return nil
}

// Close clears codec_valid, drops the queue, rejects outstanding flush
// promises silently, joins the worker, and releases the output channel.
// Idempotent: closing an already-closed instance is a no-op success.
func (i *Instance) Close() error {
	i.mu.Lock()
	if i.state == StateClosed {
		i.mu.Unlock()
		return nil
	}
	dropped := i.queue.clearAndDrop()
	pending := i.pendingFlushes
	i.pendingFlushes = nil
	i.state = StateClosed
	i.mu.Unlock()

	i.queueSize.Store(0)

	for _, m := range dropped {
		if m.flushToken != nil {
			m.flushToken.resolve(nil)
		}
	}
	for _, t := range pending {
		t.resolve(nil)
	}

	i.queue.push(&controlMessage{kind: msgClose})
	i.wk.wait()
	i.out.close()

	if i.owner != nil {
		i.owner.unregister(i)
	}
	if i.releaseSlot != nil {
		i.releaseSlot()
	}
	return nil
}
