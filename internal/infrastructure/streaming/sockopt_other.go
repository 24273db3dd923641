//go:build !linux

package streaming

// setRecvBuffer на других платформах оставляет размер буфера системе
func setRecvBuffer(fd uintptr, size int) error {
	return nil
}
