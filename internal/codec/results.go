package codec

// SVCMetadata carries the temporal-layer id every encoded packet is tagged
// with, per §6.4.
type SVCMetadata struct {
	TemporalLayerID int
}

// DecoderConfigEcho is attached to keyframe EncodedOutputs so a decoder can
// be (re)configured from the encoder's own idea of its output, including the
// extradata snapshot taken at emit time.
type DecoderConfigEcho struct {
	Codec       string
	CodedDims   Dimensions
	DisplayDims Dimensions
	Description []byte
	Colorspace  *Colorspace
}

// EncodedOutputMetadata is the metadata bundle attached to every
// EncodedOutput.
type EncodedOutputMetadata struct {
	SVC           SVCMetadata
	DecoderConfig *DecoderConfigEcho // non-nil only on keyframes
}

// EncodedOutput is the encoder session's emitted result, per §3.3.
type EncodedOutput struct {
	Payload    []byte
	Timestamp  int64
	Duration   *int64
	Type       PacketType
	FrameIndex int64
	Metadata   EncodedOutputMetadata
}

// DecodedOutput is the decoder session's emitted result, per §3.3.
type DecodedOutput struct {
	Payload     []byte // RGBA
	CodedDims   Dimensions
	DisplayDims Dimensions
	Timestamp   int64
	Duration    *int64
	Rotation    Rotation
	HFlip       bool
	Colorspace  *Colorspace
}
