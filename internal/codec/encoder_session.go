package codec

import (
	"fmt"

	"github.com/breeze-rmm/codecrt/internal/codec/backend"
)

// EncoderConfig is the facade-level encoder configure() input, §4.4.
type EncoderConfig struct {
	CodecString        string
	Width, Height      int
	DisplayWidth       int
	DisplayHeight      int
	Bitrate            int
	Framerate          int
	GOPSize            int
	BitstreamFormat    string // "annexb" (default) or "avc"/"hevc"
	Colorspace         *Colorspace
	TemporalLayerCount int
	HWPreference       backend.HWPreference
	Quantizer          *int
}

// normalize fills in the defaults from §4.4: bitrate 1Mbps, framerate 30,
// display dims = coded, GOP 30, and validates the required fields.
func (c *EncoderConfig) normalize() error {
	if c.Bitrate == 0 {
		c.Bitrate = 1_000_000
	}
	if c.Framerate == 0 {
		c.Framerate = 30
	}
	if c.GOPSize == 0 {
		c.GOPSize = 30
	}
	if c.DisplayWidth == 0 {
		c.DisplayWidth = c.Width
	}
	if c.DisplayHeight == 0 {
		c.DisplayHeight = c.Height
	}
	if c.BitstreamFormat == "" {
		c.BitstreamFormat = "annexb"
	}
	if c.TemporalLayerCount == 0 {
		c.TemporalLayerCount = 1
	}
	if c.HWPreference == "" {
		c.HWPreference = backend.NoPreference
	}
	switch c.TemporalLayerCount {
	case 1, 2, 3:
	default:
		return fmt.Errorf("codec: temporal layer count must be 1, 2, or 3, got %d", c.TemporalLayerCount)
	}
	if c.Width < minCodedDim || c.Width > maxCodedDim || c.Height < minCodedDim || c.Height > maxCodedDim {
		return fmt.Errorf("codec: dimensions %dx%d out of range [%d,%d]", c.Width, c.Height, minCodedDim, maxCodedDim)
	}
	return nil
}

type frameInfoEntry struct {
	timestamp int64
	duration  *int64
}

// EncoderSession owns the encoder backend exclusively for the lifetime of
// one configure. It is driven only by the worker goroutine; nothing here
// takes a lock.
type EncoderSession struct {
	config  EncoderConfig
	codec   backend.Codec
	backend backend.EncoderBackend

	frameIndex int64
	frameInfo  map[int64]frameInfoEntry

	extradata []byte
}

// NewEncoderSession validates cfg, resolves the codec string, and opens the
// backend. On failure the session is not created (the worker keeps
// codec_valid=false).
func NewEncoderSession(cfg EncoderConfig) (*EncoderSession, error) {
	if err := cfg.normalize(); err != nil {
		return nil, newError(ErrValidation, "configure").WithCause(err)
	}
	codec, ok := normalizeCodec(cfg.CodecString, true)
	if !ok {
		return nil, newError(ErrValidation, "configure").WithValue("codec_string", cfg.CodecString)
	}

	params := encoderBackendParams(cfg, codec)
	be, err := backend.NewEncoder(params)
	if err != nil {
		return nil, newError(ErrCodecOpen, "configure").WithValue("codec", codec).WithCause(err)
	}

	return &EncoderSession{
		config:    cfg,
		codec:     codec,
		backend:   be,
		frameInfo: make(map[int64]frameInfoEntry),
	}, nil
}

func encoderBackendParams(cfg EncoderConfig, codec backend.Codec) backend.EncoderParams {
	return backend.EncoderParams{
		Codec:              codec,
		Width:              cfg.Width,
		Height:             cfg.Height,
		Bitrate:            cfg.Bitrate,
		Framerate:          cfg.Framerate,
		GOPSize:            cfg.GOPSize,
		UseQuantizer:       cfg.Quantizer != nil,
		Quantizer:          derefOr(cfg.Quantizer, 0),
		BitstreamAnnexB:    cfg.BitstreamFormat == "annexb",
		TemporalLayerCount: cfg.TemporalLayerCount,
		HWPreference:       cfg.HWPreference,
	}
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Encode converts frame to I420 (unless it already is I420), submits it to
// the backend under a monotonically increasing frame_index, and returns the
// resulting EncodedOutputs with metadata assembled, per §4.4.
func (s *EncoderSession) Encode(frame *FrameBuffer, opts EncodeOptions) ([]EncodedOutput, *ErrorOutput) {
	i420, err := frameToI420(frame, s.config.Width, s.config.Height)
	if err != nil {
		ce := newError(ErrCodecRun, "encode").WithCause(err)
		out := errorOutputFrom(ce)
		return nil, &out
	}

	idx := s.frameIndex
	s.frameIndex++
	s.frameInfo[idx] = frameInfoEntry{timestamp: frame.Timestamp, duration: frame.Duration}

	packets, err := s.backend.Encode(i420, opts.KeyFrame, opts.Quantizer)
	if err != nil {
		ce := newError(ErrCodecRun, "encode").WithValue("frame_index", idx).WithCause(err)
		out := errorOutputFrom(ce)
		return nil, &out
	}

	var outputs []EncodedOutput
	for _, pkt := range packets {
		outputs = append(outputs, s.emit(pkt, idx))
	}
	return outputs, nil
}

// frameToI420 converts frame to I420 at the configured dims, copying plane
// by plane instead of scaling when the frame is already I420 at those dims.
func frameToI420(frame *FrameBuffer, width, height int) ([]byte, error) {
	size, err := AllocationSize(PixelI420, width, height)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, size)
	_, err = frame.CopyTo(dst, CopyOptions{
		Rect:         Rect{X: 0, Y: 0, Width: width, Height: height},
		TargetFormat: PixelI420,
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// emit assembles one EncodedOutput from a backend packet, per the emission
// steps in §4.4: frame_index->(timestamp,duration) lookup, extradata
// snapshot, SVC temporal-layer id, and the keyframe decoder-config echo.
func (s *EncoderSession) emit(pkt backend.EncodedPacket, frameIndex int64) EncodedOutput {
	info, ok := s.frameInfo[frameIndex]
	if ok {
		delete(s.frameInfo, frameIndex)
	}

	if data := s.backend.Extradata(); len(data) > 0 {
		s.extradata = data
	}

	pktType := PacketDelta
	if pkt.IsKey {
		pktType = PacketKey
	}

	out := EncodedOutput{
		Payload:    pkt.Data,
		Timestamp:  info.timestamp,
		Duration:   info.duration,
		Type:       pktType,
		FrameIndex: frameIndex,
		Metadata: EncodedOutputMetadata{
			SVC: SVCMetadata{TemporalLayerID: svcTemporalLayerID(s.config.TemporalLayerCount, frameIndex)},
		},
	}
	if pkt.IsKey {
		out.Metadata.DecoderConfig = &DecoderConfigEcho{
			Codec:       string(s.codec),
			CodedDims:   Dimensions{Width: s.config.Width, Height: s.config.Height},
			DisplayDims: Dimensions{Width: s.config.DisplayWidth, Height: s.config.DisplayHeight},
			Description: s.extradata,
			Colorspace:  s.config.Colorspace,
		}
	}
	return out
}

// Flush drains the backend, clears the timestamp map, and reinitializes the
// codec context so subsequent encodes work. frame_index is not reset.
func (s *EncoderSession) Flush() ([]EncodedOutput, error) {
	packets, err := s.backend.Flush()
	if err != nil {
		return nil, newError(ErrCodecRun, "flush").WithCause(err)
	}

	var outputs []EncodedOutput
	for _, pkt := range packets {
		// Flush-drained packets carry pts in their own encoding in real
		// libav backends; this reference backend never buffers, so this
		// loop exists for backends that do.
		outputs = append(outputs, s.emit(pkt, s.frameIndex-1))
	}
	s.frameInfo = make(map[int64]frameInfoEntry)

	if err := s.backend.Reinitialize(); err != nil {
		return outputs, newError(ErrReinitAfterEOS, "flush").WithCause(err)
	}
	return outputs, nil
}

// Reset drains silently, releases the backend, and reopens it in place with
// frame_index zeroed and the timestamp map cleared; it returns an error if
// closing or reopening fails.
func (s *EncoderSession) Reset() error {
	_, _ = s.backend.Flush()
	if err := s.backend.Close(); err != nil {
		return newError(ErrCodecRun, "reset").WithCause(err)
	}
	params := encoderBackendParams(s.config, s.codec)
	be, err := backend.NewEncoder(params)
	if err != nil {
		return newError(ErrCodecOpen, "reset").WithCause(err)
	}
	s.backend = be
	s.frameIndex = 0
	s.frameInfo = make(map[int64]frameInfoEntry)
	s.extradata = nil
	return nil
}

// Close releases the backend. Each call closes the backend again; the worker
// drops its session reference after closing, so it does not call it twice.
func (s *EncoderSession) Close() error {
	return s.backend.Close()
}
