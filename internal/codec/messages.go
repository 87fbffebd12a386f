package codec

import "sync"

// EncodeOptions carries the per-call knobs W3C's VideoEncoderEncodeOptions
// exposes: a keyframe override and an optional quantizer in the codec's
// native range (H.264/H.265: 0-51, VP9/AV1: 0-63).
type EncodeOptions struct {
	KeyFrame  bool
	Quantizer *int
}

// messageKind tags a controlMessage without requiring a type switch on the
// payload itself; the worker dispatches on this.
type messageKind int

const (
	msgConfigure messageKind = iota
	msgEncode
	msgDecode
	msgFlush
	msgReset
	msgClose
)

// controlMessage is one entry in the per-instance control queue. Exactly one
// of the payload fields is populated, selected by kind.
type controlMessage struct {
	kind messageKind

	configureParams any // *EncoderConfig or *DecoderConfig, set by the facade
	frame           *FrameBuffer
	encodeOpts      EncodeOptions
	packet          *PacketBuffer
	flushToken      *flushToken
}

// flushToken is the completion handle a Flush message carries. The facade
// creates one per flush() call and blocks on done; the worker closes done
// (after setting err) once the drain and any reinitialization completes.
type flushToken struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newFlushToken() *flushToken {
	return &flushToken{done: make(chan struct{})}
}

// resolve is idempotent: reset/close may race the worker to resolve the same
// token (abort vs normal completion), and only the first resolution sticks.
func (t *flushToken) resolve(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Wait blocks until the flush this token represents has fully completed,
// including the pending-results counter reaching zero, and returns the
// failure (if any) surfaced by codec reinitialization.
func (t *flushToken) Wait() error {
	<-t.done
	return t.err
}
