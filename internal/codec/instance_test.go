package codec

import (
	"testing"
	"time"

	"github.com/breeze-rmm/codecrt/internal/codec/backend"
)

// slowEncoder stands in for a codec under heavy CPU load: enough to let a
// burst of submissions outrun the worker and build a real backlog, which
// TestHardBackpressure needs to observe queue_size actually crossing the
// hard ceiling rather than racing a near-instant passthrough encode.
type slowEncoder struct{}

func (slowEncoder) Encode(i420 []byte, keyFrame bool, quantizer *int) ([]backend.EncodedPacket, error) {
	time.Sleep(5 * time.Millisecond)
	return []backend.EncodedPacket{{Data: append([]byte(nil), i420...), IsKey: keyFrame}}, nil
}
func (slowEncoder) Flush() ([]backend.EncodedPacket, error) { return nil, nil }
func (slowEncoder) Reinitialize() error                     { return nil }
func (slowEncoder) Extradata() []byte                        { return nil }
func (slowEncoder) Close() error                             { return nil }
func (slowEncoder) Name() string                             { return "slow-test" }
func (slowEncoder) IsHardware() bool                         { return false }

func rgbaFrame(width, height int, timestamp int64) *FrameBuffer {
	size, _ := AllocationSize(PixelRGBA, width, height)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return &FrameBuffer{
		Data:      data,
		Format:    PixelRGBA,
		Coded:     Dimensions{Width: width, Height: height},
		Visible:   Rect{X: 0, Y: 0, Width: width, Height: height},
		Display:   Dimensions{Width: width, Height: height},
		Timestamp: timestamp,
	}
}

func encodedOf(d Delivery) *EncodedOutput { return d.Encoded }
func decodedOf(d Delivery) *DecodedOutput { return d.Decoded }

func mustFlush(t *testing.T, inst *Instance) {
	t.Helper()
	token, err := inst.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := token.Wait(); err != nil {
		t.Fatalf("flush completion: %v", err)
	}
}

// Scenario 1: Encode -> decode roundtrip (H.264 @ 64x64), §8.
func TestEncodeDecodeRoundtrip(t *testing.T) {
	encSink := &recordingSink{}
	enc := NewEncoderInstance(encSink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{
		CodecString: "avc1.42E01E",
		Width:       64,
		Height:      64,
		Framerate:   30,
	}); err != nil {
		t.Fatalf("configure encoder: %v", err)
	}

	for i := 0; i < 10; i++ {
		ts := int64(i) * 33333
		if err := enc.Encode(rgbaFrame(64, 64, ts), EncodeOptions{KeyFrame: i == 0}); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	mustFlush(t, enc)

	encSink.mu.Lock()
	encoded := append([]Delivery(nil), encSink.received...)
	encSink.mu.Unlock()

	var packets []*EncodedOutput
	for _, d := range encoded {
		if d.Encoded != nil {
			packets = append(packets, d.Encoded)
		}
	}
	if len(packets) != 10 {
		t.Fatalf("got %d encoded packets, want 10", len(packets))
	}
	if packets[0].Metadata.DecoderConfig == nil {
		t.Fatal("first packet missing decoder config echo")
	}
	cfgEcho := packets[0].Metadata.DecoderConfig

	decSink := &recordingSink{}
	dec := NewDecoderInstance(decSink)
	defer dec.Close()

	if err := dec.Configure(&DecoderConfig{
		CodecString: cfgEcho.Codec,
		Width:       cfgEcho.CodedDims.Width,
		Height:      cfgEcho.CodedDims.Height,
		Description: cfgEcho.Description,
	}); err != nil {
		t.Fatalf("configure decoder: %v", err)
	}

	for _, p := range packets {
		if err := dec.Decode(&PacketBuffer{Data: p.Payload, Type: p.Type, Timestamp: p.Timestamp}); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	mustFlush(t, dec)

	decSink.mu.Lock()
	decoded := append([]Delivery(nil), decSink.received...)
	decSink.mu.Unlock()

	var frames []*DecodedOutput
	for _, d := range decoded {
		if d.Decoded != nil {
			frames = append(frames, d.Decoded)
		}
	}
	if len(frames) != 10 {
		t.Fatalf("got %d decoded frames, want 10", len(frames))
	}
	for i, fr := range frames {
		want := int64(i) * 33333
		if fr.Timestamp != want {
			t.Errorf("frame %d timestamp = %d, want %d", i, fr.Timestamp, want)
		}
		if fr.CodedDims != (Dimensions{Width: 64, Height: 64}) {
			t.Errorf("frame %d dims = %+v, want 64x64", i, fr.CodedDims)
		}
	}
}

// Scenario 2: keyframe forcing, §8.
func TestKeyframeForcing(t *testing.T) {
	sink := &recordingSink{}
	enc := NewEncoderInstance(sink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{CodecString: "avc1.42E01E", Width: 32, Height: 32}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := enc.Encode(rgbaFrame(32, 32, int64(i)*1000), EncodeOptions{KeyFrame: i == 0}); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	mustFlush(t, enc)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var packets []*EncodedOutput
	for _, d := range sink.received {
		if d.Encoded != nil {
			packets = append(packets, d.Encoded)
		}
	}
	if len(packets) != 5 {
		t.Fatalf("got %d packets, want 5", len(packets))
	}
	if packets[0].Type != PacketKey {
		t.Errorf("packet 0 type = %s, want key", packets[0].Type)
	}
	for i := 1; i < 5; i++ {
		if packets[i].Type != PacketDelta {
			t.Errorf("packet %d type = %s, want delta", i, packets[i].Type)
		}
	}
}

// Scenario 3: SVC L1T3 pattern, §6.4/§8.
func TestSVCL1T3Pattern(t *testing.T) {
	sink := &recordingSink{}
	enc := NewEncoderInstance(sink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{
		CodecString:        "avc1.42E01E",
		Width:              32,
		Height:             32,
		TemporalLayerCount: 3,
	}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	for i := 0; i < 8; i++ {
		if err := enc.Encode(rgbaFrame(32, 32, int64(i)), EncodeOptions{}); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	mustFlush(t, enc)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var got []int
	for _, d := range sink.received {
		if d.Encoded != nil {
			got = append(got, d.Encoded.Metadata.SVC.TemporalLayerID)
		}
	}
	want := []int{0, 2, 1, 2, 0, 2, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d layer ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("layer id %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// Scenario 4: flush reinitialization, §8.
func TestFlushReinitialization(t *testing.T) {
	sink := &recordingSink{}
	enc := NewEncoderInstance(sink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{CodecString: "avc1.42E01E", Width: 16, Height: 16}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := enc.Encode(rgbaFrame(16, 16, int64(i)*100), EncodeOptions{}); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	mustFlush(t, enc)

	for i := 3; i < 6; i++ {
		if err := enc.Encode(rgbaFrame(16, 16, int64(i)*100), EncodeOptions{}); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	mustFlush(t, enc)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var packets []*EncodedOutput
	for _, d := range sink.received {
		if d.Encoded != nil {
			packets = append(packets, d.Encoded)
		}
	}
	if len(packets) != 6 {
		t.Fatalf("got %d packets, want 6", len(packets))
	}
	for i, p := range packets {
		want := int64(i) * 100
		if p.Timestamp != want {
			t.Errorf("packet %d timestamp = %d, want %d", i, p.Timestamp, want)
		}
		if p.FrameIndex != int64(i) {
			t.Errorf("packet %d frame_index = %d, want %d", i, p.FrameIndex, i)
		}
	}
}

// Scenario 5: reset during backlog, §8. Uses the slow encoder so the worker
// is still draining early submissions when Reset is called, guaranteeing
// the flush pushed after the backlog is still queued (not yet resolved)
// when clearAndDrop runs.
func TestResetDuringBacklog(t *testing.T) {
	backend.RegisterEncoder(backend.VP9, func(backend.EncoderParams) (backend.EncoderBackend, error) {
		return slowEncoder{}, nil
	})

	sink := &recordingSink{}
	enc := NewEncoderInstance(sink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{CodecString: "vp9", Width: 16, Height: 16}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	for i := 0; i < 20; i++ {
		_ = enc.Encode(rgbaFrame(16, 16, int64(i)), EncodeOptions{})
	}
	flushToken, err := enc.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := enc.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if qs := enc.QueueSize(); qs != 0 {
		t.Errorf("queue_size after reset = %d, want 0", qs)
	}

	if qs := enc.QueueSize(); qs != 0 {
		t.Errorf("queue_size after reset = %d, want 0", qs)
	}

	select {
	case <-waitFlushDone(flushToken):
	case <-time.After(time.Second):
		t.Fatal("flush token never resolved after reset")
	}
	if err := flushToken.Wait(); err == nil {
		t.Error("expected the pre-reset flush to be aborted")
	}

	if enc.State() != StateUnconfigured {
		t.Errorf("state after reset = %s, want unconfigured", enc.State())
	}
}

func waitFlushDone(t *flushToken) <-chan struct{} { return t.done }

// Scenario 6: hard backpressure, §8.
func TestHardBackpressure(t *testing.T) {
	backend.RegisterEncoder(backend.VP8, func(backend.EncoderParams) (backend.EncoderBackend, error) {
		return slowEncoder{}, nil
	})

	sink := &recordingSink{refuse: true}
	enc := NewEncoderInstance(sink)
	defer enc.Close()

	if err := enc.Configure(&EncoderConfig{CodecString: "vp8", Width: 16, Height: 16}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	var lastErr error
	for i := 0; i < hardQueueLimit+2; i++ {
		lastErr = enc.Encode(rgbaFrame(16, 16, int64(i)), EncodeOptions{})
		if lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected quota-exceeded before exhausting submissions")
	}
	ce, ok := lastErr.(*CodecError)
	if !ok || ce.Kind != ErrQuotaExceeded {
		t.Fatalf("error = %v, want quota-exceeded CodecError", lastErr)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("second close should be idempotent, got: %v", err)
	}
}
