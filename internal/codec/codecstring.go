package codec

import (
	"strings"

	"github.com/breeze-rmm/codecrt/internal/codec/backend"
)

const (
	minCodedDim = 1
	maxCodedDim = 16384
)

// normalizeCodec canonicalizes a WebCodecs codec string (or its short
// alias) to the backend.Codec short form, per §6.5. isEncoder controls
// whether HEVC aliases are accepted (encoder-only per §6.5).
func normalizeCodec(codecString string, isEncoder bool) (backend.Codec, bool) {
	s := strings.ToLower(strings.TrimSpace(codecString))
	switch {
	case strings.HasPrefix(s, "avc1.") || s == "h264":
		return backend.H264, true
	case s == "vp8":
		return backend.VP8, true
	case strings.HasPrefix(s, "vp09.") || s == "vp9":
		return backend.VP9, true
	case strings.HasPrefix(s, "av01.") || s == "av1":
		return backend.AV1, true
	case isEncoder && (strings.HasPrefix(s, "hev1.") || strings.HasPrefix(s, "hvc1.") || s == "hevc"):
		return backend.HEVC, true
	default:
		return "", false
	}
}

// SupportResult is the output of IsConfigSupported.
type SupportResult struct {
	Supported bool
	Codec     backend.Codec
	Width     int
	Height    int
}

// IsConfigSupportedEncoder implements is_config_supported(config) for
// encoder configs: normalizes the codec string and clamps dims into
// [1,16384], reporting unsupported if the original values were out of
// range rather than silently clamping a config the caller would then use.
func IsConfigSupportedEncoder(codecString string, width, height int) SupportResult {
	return isConfigSupported(codecString, width, height, true)
}

// IsConfigSupportedDecoder implements is_config_supported(config) for
// decoder configs.
func IsConfigSupportedDecoder(codecString string, width, height int) SupportResult {
	return isConfigSupported(codecString, width, height, false)
}

func isConfigSupported(codecString string, width, height int, isEncoder bool) SupportResult {
	codec, ok := normalizeCodec(codecString, isEncoder)
	if !ok {
		return SupportResult{Supported: false}
	}
	if width < minCodedDim || width > maxCodedDim || height < minCodedDim || height > maxCodedDim {
		return SupportResult{
			Supported: false,
			Codec:     codec,
			Width:     min(max(width, minCodedDim), maxCodedDim),
			Height:    min(max(height, minCodedDim), maxCodedDim),
		}
	}
	return SupportResult{Supported: true, Codec: codec, Width: width, Height: height}
}
