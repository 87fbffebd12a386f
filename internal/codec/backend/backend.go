// Package backend defines the CORE's boundary with the native media
// library: §6.2 lists codec open/send/receive/flush and extradata retrieval
// as the operations the CORE needs, and treats the library implementing
// them as an opaque external dependency. EncoderBackend/DecoderBackend are
// that boundary; the reference implementations in this package are runnable
// placeholders, not a production codec.
package backend

// Codec identifies a supported codec family by its short name.
type Codec string

const (
	H264 Codec = "h264"
	HEVC Codec = "hevc"
	VP8  Codec = "vp8"
	VP9  Codec = "vp9"
	AV1  Codec = "av1"
)

// HWPreference mirrors W3C's HardwareAcceleration enum.
type HWPreference string

const (
	NoPreference    HWPreference = "no-preference"
	PreferHardware  HWPreference = "prefer-hardware"
	PreferSoftware  HWPreference = "prefer-software"
)

// EncoderParams configures the EncoderFactory call that opens an
// EncoderBackend. Width/Height are
// always I420 8-bit per §4.4's mandatory encoder settings.
type EncoderParams struct {
	Codec              Codec
	Width, Height      int
	Bitrate            int
	Framerate          int
	GOPSize            int
	UseQuantizer       bool
	Quantizer          int
	BitstreamAnnexB    bool
	TemporalLayerCount int
	HWPreference       HWPreference
}

// EncodedPacket is one compressed packet produced by EncoderBackend.Encode
// or Flush, before the session layer attaches timestamp/SVC/decoder-config
// metadata.
type EncodedPacket struct {
	Data  []byte
	IsKey bool
}

// EncoderBackend is the codec-library collaborator an EncoderSession drives.
// Implementations own their native context exclusively; the session never
// calls concurrently from more than one goroutine.
type EncoderBackend interface {
	// Encode submits one I420 frame and returns any packets it produces
	// immediately (a conformant encoder with B-frames disabled produces
	// exactly one packet per frame submitted, but implementations are not
	// required to assume that).
	Encode(i420 []byte, keyFrame bool, quantizer *int) ([]EncodedPacket, error)
	// Flush signals end-of-stream and returns all buffered packets.
	Flush() ([]EncodedPacket, error)
	// Reinitialize reopens the codec context with the same parameters
	// the factory opened it with, required because most libav-class encoders
	// cannot accept new input after an end-of-stream signal.
	Reinitialize() error
	// Extradata returns the codec's current out-of-band header (e.g.
	// H.264 SPS/PPS), or nil if the codec does not produce one or has not
	// produced one yet.
	Extradata() []byte
	Close() error
	Name() string
	IsHardware() bool
}

// DecoderParams configures the DecoderFactory call that opens a
// DecoderBackend.
type DecoderParams struct {
	Codec       Codec
	Width       int
	Height      int
	Description []byte
	LowLatency  bool
}

// DecodedFrame is one I420 frame produced by DecoderBackend.Decode or
// Flush, before the session layer converts it to RGBA.
type DecodedFrame struct {
	Data          []byte // I420
	Width, Height int
	PTS           int64
}

// DecoderBackend is the codec-library collaborator a DecoderSession drives.
type DecoderBackend interface {
	Decode(packet []byte, pts int64) ([]DecodedFrame, error)
	Flush() ([]DecodedFrame, error)
	Close() error
	Name() string
}

// EncoderFactory constructs and opens an EncoderBackend for params.
type EncoderFactory func(params EncoderParams) (EncoderBackend, error)

// DecoderFactory constructs and opens a DecoderBackend for params.
type DecoderFactory func(params DecoderParams) (DecoderBackend, error)
