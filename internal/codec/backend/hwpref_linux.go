//go:build linux
// +build linux

package backend

import "golang.org/x/sys/unix"

// platformHardwareName reports which hardware encoder family this OS would
// offer first for prefer-hardware. It always reports the generic VAAPI path;
// the uname result is fetched but not inspected, so no kernel-specific
// vendor acceleration is distinguished.
func platformHardwareName() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "vaapi"
	}
	return "vaapi"
}
