package codec

import (
	"sync/atomic"
)

// kindTag distinguishes an encoder instance from a decoder instance; a
// worker only ever drives one of EncoderSession/DecoderSession depending on
// this tag.
type kindTag int

const (
	kindEncoder kindTag = iota
	kindDecoder
)

// worker is the single dedicated goroutine that exclusively owns the codec
// session for one instance's configured lifetime, per §4.2.
type worker struct {
	kind  kindTag
	queue *controlQueue
	out   *outputChannel

	codecValid atomic.Bool

	encSession *EncoderSession
	decSession *DecoderSession

	// onDequeue is called, if set, right after a counted message (encode,
	// decode, flush) is popped, before it is dispatched: this is the single
	// decrement point for the facade's queue_size per §9's adopted
	// single-counter reading of the source's queue_size/processing split.
	onDequeue func()

	doneCh chan struct{}
}

func newWorker(kind kindTag, queue *controlQueue, out *outputChannel) *worker {
	return &worker{kind: kind, queue: queue, out: out, doneCh: make(chan struct{})}
}

// start launches the worker's dedicated goroutine.
func (w *worker) start() {
	go w.loop()
}

// wait blocks until the worker goroutine has exited (Close processed).
func (w *worker) wait() {
	<-w.doneCh
}

func (w *worker) loop() {
	defer close(w.doneCh)
	for {
		msg, ok := w.queue.popBlocking()
		if !ok {
			return
		}
		if w.onDequeue != nil && isQueueCounted(msg.kind) {
			w.onDequeue()
		}
		w.dispatch(msg)
		w.queue.finishProcessing()
	}
}

// isQueueCounted reports whether msg contributes to the facade's observable
// queue_size; configure/reset/close are lifecycle operations, not backlog.
func isQueueCounted(k messageKind) bool {
	switch k {
	case msgEncode, msgDecode, msgFlush:
		return true
	default:
		return false
	}
}

func (w *worker) dispatch(msg *controlMessage) {
	defer func() {
		if r := recover(); r != nil {
			w.emitError(newError(ErrCodecRun, "dispatch").WithValue("panic", r))
		}
	}()
	switch msg.kind {
	case msgConfigure:
		w.onConfigure(msg)
	case msgEncode:
		w.onEncode(msg)
	case msgDecode:
		w.onDecode(msg)
	case msgFlush:
		w.onFlush(msg)
	case msgReset:
		w.onReset(msg)
	case msgClose:
		w.onClose(msg)
	}
}

func (w *worker) onConfigure(msg *controlMessage) {
	switch w.kind {
	case kindEncoder:
		cfg := *msg.configureParams.(*EncoderConfig)
		if w.encSession != nil {
			_ = w.encSession.Close()
			w.encSession = nil
			w.codecValid.Store(false)
		}
		sess, err := NewEncoderSession(cfg)
		if err != nil {
			w.emitError(err)
			return
		}
		w.encSession = sess
		w.codecValid.Store(true)
	case kindDecoder:
		cfg := *msg.configureParams.(*DecoderConfig)
		if w.decSession != nil {
			_ = w.decSession.Close()
			w.decSession = nil
			w.codecValid.Store(false)
		}
		sess, err := NewDecoderSession(cfg)
		if err != nil {
			w.emitError(err)
			return
		}
		w.decSession = sess
		w.codecValid.Store(true)
	}
}

func (w *worker) onEncode(msg *controlMessage) {
	if w.encSession == nil {
		return
	}
	outputs, errOut := w.encSession.Encode(msg.frame, msg.encodeOpts)
	for i := range outputs {
		w.out.emit(Delivery{Encoded: &outputs[i]})
	}
	if errOut != nil {
		w.out.emit(Delivery{Error: errOut})
	}
}

func (w *worker) onDecode(msg *controlMessage) {
	if w.decSession == nil {
		return
	}
	outputs, errOut := w.decSession.Decode(msg.packet)
	for i := range outputs {
		w.out.emit(Delivery{Decoded: &outputs[i]})
	}
	if errOut != nil {
		w.out.emit(Delivery{Error: errOut})
	}
}

func (w *worker) onFlush(msg *controlMessage) {
	var flushErr error
	switch w.kind {
	case kindEncoder:
		if w.encSession != nil {
			outputs, err := w.encSession.Flush()
			for i := range outputs {
				w.out.emit(Delivery{Encoded: &outputs[i]})
			}
			flushErr = err
		}
	case kindDecoder:
		if w.decSession != nil {
			outputs, err := w.decSession.Flush()
			for i := range outputs {
				w.out.emit(Delivery{Decoded: &outputs[i]})
			}
			flushErr = err
		}
	}

	// Flush is not complete until every delivery from this flush (and any
	// still in flight from before it) has left the output channel, per
	// §4.6/§6.1.
	w.out.pending.WaitZero()
	w.out.emit(Delivery{FlushComplete: true})
	if msg.flushToken != nil {
		msg.flushToken.resolve(flushErr)
	}
}

func (w *worker) onReset(msg *controlMessage) {
	w.codecValid.Store(false)
	switch w.kind {
	case kindEncoder:
		if w.encSession != nil {
			_ = w.encSession.Reset()
		}
	case kindDecoder:
		if w.decSession != nil {
			_ = w.decSession.Reset()
		}
	}
	w.codecValid.Store(true)
}

func (w *worker) onClose(msg *controlMessage) {
	w.codecValid.Store(false)
	switch w.kind {
	case kindEncoder:
		if w.encSession != nil {
			_ = w.encSession.Close()
			w.encSession = nil
		}
	case kindDecoder:
		if w.decSession != nil {
			_ = w.decSession.Close()
			w.decSession = nil
		}
	}
	w.queue.stop()
}

func (w *worker) emitError(err error) {
	ce, ok := err.(*CodecError)
	if !ok {
		ce = newError(ErrCodecRun, "configure").WithCause(err)
	}
	out := errorOutputFrom(ce)
	w.out.emit(Delivery{Error: &out})
}
