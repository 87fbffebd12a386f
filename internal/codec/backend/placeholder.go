package backend

import (
	"encoding/binary"
	"fmt"
)

// Placeholder passthrough until real libx264/libvpx/libaom bindings are
// integrated. The wire format is a tiny self-describing container wrapping
// the raw I420 payload, good enough to exercise the full queue/worker/
// session/facade pipeline end to end without a native codec present.
//
// magic(4) | keyframe(1) | width(4 BE) | height(4 BE) | i420 payload
var passthroughMagic = [4]byte{'W', 'C', 'P', 'H'}

func init() {
	for _, c := range []Codec{H264, HEVC, VP8, VP9, AV1} {
		codec := c
		RegisterEncoder(codec, func(params EncoderParams) (EncoderBackend, error) {
			return newPassthroughEncoder(codec, params)
		})
		RegisterDecoder(codec, func(params DecoderParams) (DecoderBackend, error) {
			return newPassthroughDecoder(codec, params)
		})
	}
}

type passthroughEncoder struct {
	codec  Codec
	params EncoderParams
}

func newPassthroughEncoder(codec Codec, params EncoderParams) (EncoderBackend, error) {
	if params.Width <= 0 || params.Height <= 0 {
		return nil, fmt.Errorf("backend: invalid dimensions %dx%d", params.Width, params.Height)
	}
	return &passthroughEncoder{codec: codec, params: params}, nil
}

func (e *passthroughEncoder) Encode(i420 []byte, keyFrame bool, quantizer *int) ([]EncodedPacket, error) {
	pkt := make([]byte, 13+len(i420))
	copy(pkt[0:4], passthroughMagic[:])
	if keyFrame {
		pkt[4] = 1
	}
	binary.BigEndian.PutUint32(pkt[5:9], uint32(e.params.Width))
	binary.BigEndian.PutUint32(pkt[9:13], uint32(e.params.Height))
	copy(pkt[13:], i420)
	return []EncodedPacket{{Data: pkt, IsKey: keyFrame}}, nil
}

func (e *passthroughEncoder) Flush() ([]EncodedPacket, error) { return nil, nil }

func (e *passthroughEncoder) Reinitialize() error { return nil }

func (e *passthroughEncoder) Extradata() []byte { return []byte(string(e.codec)) }

func (e *passthroughEncoder) Close() error { return nil }

func (e *passthroughEncoder) Name() string { return "passthrough-" + string(e.codec) }

func (e *passthroughEncoder) IsHardware() bool { return false }

type passthroughDecoder struct {
	codec  Codec
	params DecoderParams
}

func newPassthroughDecoder(codec Codec, params DecoderParams) (DecoderBackend, error) {
	return &passthroughDecoder{codec: codec, params: params}, nil
}

func (d *passthroughDecoder) Decode(packet []byte, pts int64) ([]DecodedFrame, error) {
	if len(packet) < 13 {
		return nil, fmt.Errorf("backend: packet too short for passthrough container: %d bytes", len(packet))
	}
	if string(packet[0:4]) != string(passthroughMagic[:]) {
		return nil, fmt.Errorf("backend: packet missing passthrough container magic")
	}
	width := int(binary.BigEndian.Uint32(packet[5:9]))
	height := int(binary.BigEndian.Uint32(packet[9:13]))
	payload := make([]byte, len(packet)-13)
	copy(payload, packet[13:])
	return []DecodedFrame{{Data: payload, Width: width, Height: height, PTS: pts}}, nil
}

func (d *passthroughDecoder) Flush() ([]DecodedFrame, error) { return nil, nil }

func (d *passthroughDecoder) Close() error { return nil }

func (d *passthroughDecoder) Name() string { return "passthrough-" + string(d.codec) }
