package streaming

import (
	"net"
	"syscall"
	"time"
)

// NewTCPDialer создает дайлер с таймаутом подключения и увеличенным буфером приема
func NewTCPDialer(timeout time.Duration, recvBuffer int) *net.Dialer {
	return &net.Dialer{
		Timeout: timeout,
		Control: func(network, address string, c syscall.RawConn) error {
			if recvBuffer <= 0 {
				return nil
			}
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = setRecvBuffer(fd, recvBuffer)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}
