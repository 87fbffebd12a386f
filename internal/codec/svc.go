package codec

// svcTemporalLayerID computes the temporal-layer id for frameIndex under an
// SVC configuration with layerCount temporal layers, per §6.4.
func svcTemporalLayerID(layerCount int, frameIndex int64) int {
	switch layerCount {
	case 2:
		return int(frameIndex & 1)
	case 3:
		pattern := [4]int{0, 2, 1, 2}
		return pattern[frameIndex%4]
	default: // 1 layer, or anything unrecognized falls back to the base layer
		return 0
	}
}
