package backend

import (
	"fmt"
	"sync"
)

// Dispatch over codecs is a tagged table, not an inheritance hierarchy: each
// codec id maps to a constructor function, selected by a small lookup
// rather than a virtual base class.
var (
	encoderFactoriesMu sync.Mutex
	encoderFactories   = map[Codec]EncoderFactory{}

	decoderFactoriesMu sync.Mutex
	decoderFactories   = map[Codec]DecoderFactory{}
)

// RegisterEncoder installs the constructor used for codec. Called from each
// backend implementation's init().
func RegisterEncoder(codec Codec, factory EncoderFactory) {
	encoderFactoriesMu.Lock()
	defer encoderFactoriesMu.Unlock()
	encoderFactories[codec] = factory
}

// RegisterDecoder installs the constructor used for codec.
func RegisterDecoder(codec Codec, factory DecoderFactory) {
	decoderFactoriesMu.Lock()
	defer decoderFactoriesMu.Unlock()
	decoderFactories[codec] = factory
}

// NewEncoder looks up and opens the encoder registered for params.Codec.
// NewEncoder applies no hardware preference ordering itself; it passes
// params.HWPreference to the registered factory. The passthrough factories
// registered in placeholder.go ignore HWPreference, so no hardware encoder
// is tried and there is no hardware-to-software fallback.
func NewEncoder(params EncoderParams) (EncoderBackend, error) {
	encoderFactoriesMu.Lock()
	factory, ok := encoderFactories[params.Codec]
	encoderFactoriesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("backend: no encoder registered for codec %q", params.Codec)
	}
	return factory(params)
}

// NewDecoder looks up and opens the decoder registered for params.Codec.
func NewDecoder(params DecoderParams) (DecoderBackend, error) {
	decoderFactoriesMu.Lock()
	factory, ok := decoderFactories[params.Codec]
	decoderFactoriesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("backend: no decoder registered for codec %q", params.Codec)
	}
	return factory(params)
}
