//go:build darwin
// +build darwin

package backend

// platformHardwareName reports which hardware encoder family this OS would
// offer first when a caller asks for prefer-hardware. No hardware backend is
// linked in (see package doc), and no encoder path calls this function; only
// this package's tests use it.
func platformHardwareName() string {
	return "videotoolbox"
}
