//go:build linux

package streaming

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setRecvBuffer задает SO_RCVBUF, чтобы кадр целиком помещался в буфер ядра
func setRecvBuffer(fd uintptr, size int) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size); err != nil {
		return fmt.Errorf("SO_RCVBUF: %w", err)
	}
	return nil
}
