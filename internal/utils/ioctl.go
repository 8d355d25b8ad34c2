package utils

import (
	"os"

	"golang.org/x/sys/unix"
)

// IOCtl はデバイスファイルに対して ioctl を発行する
func IOCtl(file *os.File, request uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
