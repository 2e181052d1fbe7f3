//go:build windows

package engine

import (
	"os"

	"golang.org/x/sys/windows"
)

// platformCopyTimes mirrors last-access, last-write, and creation time
// using the raw Win32 handle so that creation time (unavailable through
// os.FileInfo) can be carried over too.
func platformCopyTimes(srcPath, dstPath string, srcInfo os.FileInfo) error {
	srcPtr, err := windows.UTF16PtrFromString(srcPath)
	if err != nil {
		return err
	}
	h, err := windows.CreateFile(srcPtr, windows.GENERIC_READ, windows.FILE_SHARE_READ, nil,
		windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)

	var creation, access, write windows.Filetime
	if err := windows.GetFileTime(h, &creation, &access, &write); err != nil {
		return err
	}

	dstPtr, err := windows.UTF16PtrFromString(dstPath)
	if err != nil {
		return err
	}
	dh, err := windows.CreateFile(dstPtr, windows.GENERIC_WRITE, 0, nil,
		windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(dh)

	return windows.SetFileTime(dh, &creation, &access, &write)
}

// platformCopyAttributes mirrors archive/hidden/system/readonly file
// attribute bits, the non-POSIX substitute for permission bits.
func platformCopyAttributes(srcPath, dstPath string, srcInfo os.FileInfo) error {
	srcPtr, err := windows.UTF16PtrFromString(srcPath)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(srcPtr)
	if err != nil {
		return err
	}
	dstPtr, err := windows.UTF16PtrFromString(dstPath)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(dstPtr, attrs)
}
