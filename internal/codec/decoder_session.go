package codec

import (
	"fmt"

	"github.com/breeze-rmm/codecrt/internal/codec/backend"
)

// DecoderConfig is the facade-level decoder configure() input, §4.3.
type DecoderConfig struct {
	CodecString   string
	Width, Height int
	Description   []byte
	Rotation      Rotation
	HFlip         bool
	AspectWidth   *int
	AspectHeight  *int
	Colorspace    *Colorspace
	LowLatency    bool
}

func (c *DecoderConfig) normalize() error {
	if c.Width < minCodedDim || c.Width > maxCodedDim || c.Height < minCodedDim || c.Height > maxCodedDim {
		return fmt.Errorf("codec: dimensions %dx%d out of range [%d,%d]", c.Width, c.Height, minCodedDim, maxCodedDim)
	}
	return nil
}

// displayDims implements the §4.3 formula: when an aspect ratio was
// provided, display_width = round(coded_height * aspect_w/aspect_h) and
// display_height = coded_height; otherwise display = coded.
func (c *DecoderConfig) displayDims() Dimensions {
	if c.AspectWidth == nil || c.AspectHeight == nil || *c.AspectHeight == 0 {
		return Dimensions{Width: c.Width, Height: c.Height}
	}
	w := (c.Height*(*c.AspectWidth) + (*c.AspectHeight)/2) / (*c.AspectHeight)
	return Dimensions{Width: w, Height: c.Height}
}

// DecoderSession owns the decoder backend exclusively for the lifetime of
// one configure. Driven only by the worker goroutine.
type DecoderSession struct {
	config  DecoderConfig
	codec   backend.Codec
	backend backend.DecoderBackend

	scalerWidth, scalerHeight int
	scalerFormat              PixelFormat
}

// NewDecoderSession validates cfg, resolves the codec string, and opens the
// backend.
func NewDecoderSession(cfg DecoderConfig) (*DecoderSession, error) {
	if err := cfg.normalize(); err != nil {
		return nil, newError(ErrValidation, "configure").WithCause(err)
	}
	codec, ok := normalizeCodec(cfg.CodecString, false)
	if !ok {
		return nil, newError(ErrValidation, "configure").WithValue("codec_string", cfg.CodecString)
	}

	be, err := backend.NewDecoder(backend.DecoderParams{
		Codec:       codec,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Description: cfg.Description,
		LowLatency:  cfg.LowLatency,
	})
	if err != nil {
		return nil, newError(ErrCodecOpen, "configure").WithValue("codec", codec).WithCause(err)
	}

	return &DecoderSession{config: cfg, codec: codec, backend: be}, nil
}

// Decode sends packet to the backend and converts every drained frame to
// RGBA, ensuring the scaler context matches the frame's (format, dims),
// recreating it on change, per §4.3.
func (s *DecoderSession) Decode(packet *PacketBuffer) ([]DecodedOutput, *ErrorOutput) {
	frames, err := s.backend.Decode(packet.Data, packet.Timestamp)
	if err != nil {
		ce := newError(ErrCodecRun, "decode").WithCause(err)
		out := errorOutputFrom(ce)
		return nil, &out
	}
	return s.convertFrames(frames), nil
}

func (s *DecoderSession) convertFrames(frames []backend.DecodedFrame) []DecodedOutput {
	var outputs []DecodedOutput
	for _, fr := range frames {
		s.ensureScaler(fr.Width, fr.Height)

		src := &FrameBuffer{
			Data:    fr.Data,
			Format:  PixelI420,
			Coded:   Dimensions{Width: fr.Width, Height: fr.Height},
			Visible: Rect{X: 0, Y: 0, Width: fr.Width, Height: fr.Height},
		}
		rgba := make([]byte, fr.Width*fr.Height*4)
		if _, err := src.CopyTo(rgba, CopyOptions{TargetFormat: PixelRGBA}); err != nil {
			continue
		}

		display := s.config.displayDims()
		outputs = append(outputs, DecodedOutput{
			Payload:     rgba,
			CodedDims:   Dimensions{Width: fr.Width, Height: fr.Height},
			DisplayDims: display,
			Timestamp:   fr.PTS,
			Rotation:    s.config.Rotation,
			HFlip:       s.config.HFlip,
			Colorspace:  s.config.Colorspace,
		})
	}
	return outputs
}

// ensureScaler tracks the (format, dims) the scaler was last built for and
// is where a real backend would recreate its swscale context on change.
// The reference backend converts fresh every call, so this only maintains
// the bookkeeping the contract requires.
func (s *DecoderSession) ensureScaler(width, height int) {
	if s.scalerWidth == width && s.scalerHeight == height && s.scalerFormat == PixelI420 {
		return
	}
	s.scalerWidth, s.scalerHeight = width, height
	s.scalerFormat = PixelI420
}

// Flush sends end-of-stream, drains remaining frames, and resets the
// backend's internal buffers so it accepts new packets again.
func (s *DecoderSession) Flush() ([]DecodedOutput, error) {
	frames, err := s.backend.Flush()
	if err != nil {
		return nil, newError(ErrCodecRun, "flush").WithCause(err)
	}
	return s.convertFrames(frames), nil
}

// Reset discards buffered output and drops the scaler context (lazily
// recreated on the next Decode).
func (s *DecoderSession) Reset() error {
	_, _ = s.backend.Flush()
	s.scalerWidth, s.scalerHeight = 0, 0
	s.scalerFormat = ""
	return nil
}

// Close releases the backend.
func (s *DecoderSession) Close() error {
	return s.backend.Close()
}
