//go:build !windows

package engine

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// platformCopyTimes mirrors last-access and last-write time. Linux has
// no portable way to set file creation time, so creation time is not
// reproduced here (it isn't even reliably exposed by Stat_t on this
// platform); macOS/BSD variants that do expose a birthtime would extend
// this with a Setattrlist/utimensat call.
func platformCopyTimes(srcPath, dstPath string, srcInfo os.FileInfo) error {
	atime := srcInfo.ModTime()
	mtime := srcInfo.ModTime()
	if st, ok := srcInfo.Sys().(*syscall.Stat_t); ok {
		atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		mtime = time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
	}
	return os.Chtimes(dstPath, atime, mtime)
}

// platformCopyAttributes mirrors permission bits, owner uid/gid, and
// special-file mode bits (setuid/setgid/sticky, already folded into
// Mode() by os.Stat).
func platformCopyAttributes(srcPath, dstPath string, srcInfo os.FileInfo) error {
	if err := os.Chmod(dstPath, srcInfo.Mode()); err != nil {
		return err
	}
	st, ok := srcInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	return unix.Chown(dstPath, int(st.Uid), int(st.Gid))
}
