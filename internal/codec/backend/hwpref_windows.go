//go:build windows
// +build windows

package backend

import "golang.org/x/sys/windows"

// platformHardwareName reports which hardware encoder family this OS would
// offer first for prefer-hardware. It always reports Media Foundation; the
// administrators SID lookup below does not affect the result.
func platformHardwareName() string {
	var sid *windows.SID
	if err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	); err == nil {
		windows.FreeSid(sid)
	}
	return "mediafoundation"
}
