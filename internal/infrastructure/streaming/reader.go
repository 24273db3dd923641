package streaming

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"camera-stream/internal/domain"
)

// deadlineReader соединение, поддерживающее дедлайн чтения
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// FrameReader читает точное число байт из соединения за отведенное время
type FrameReader struct {
	timeout time.Duration
	now     func() time.Time
}

// NewFrameReader создает ридер с дедлайном timeout на один вызов ReadExact
func NewFrameReader(timeout time.Duration) *FrameReader {
	return &FrameReader{
		timeout: timeout,
		now:     time.Now,
	}
}

// ReadExact возвращает ровно n байт или ошибку Timeout/ConnectionClosed
func (r *FrameReader) ReadExact(conn io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if n < 0 {
		return nil, domain.NewStreamError(domain.KindDecode, "read",
			fmt.Errorf("отрицательная длина чтения: %d", n))
	}

	start := r.now()
	if dr, ok := conn.(deadlineReader); ok && r.timeout > 0 {
		if err := dr.SetReadDeadline(start.Add(r.timeout)); err != nil {
			return nil, domain.NewStreamError(domain.KindConnection, "read", err)
		}
	}

	data := make([]byte, n)
	got := 0
	for got < n {
		if r.timeout > 0 && r.now().Sub(start) > r.timeout {
			return nil, domain.NewStreamError(domain.KindTimeout, "read",
				fmt.Errorf("получено %d из %d байт за %v", got, n, r.timeout))
		}

		remaining := n - got
		nr, err := conn.Read(data[got:])
		if nr > remaining {
			return nil, domain.NewStreamError(domain.KindDecode, "read",
				fmt.Errorf("прочитано %d байт при остатке %d", nr, remaining))
		}
		got += nr

		if err != nil {
			if got == n {
				break
			}
			return nil, classifyReadError(err, got, n)
		}
	}

	return data, nil
}

// classifyReadError переводит ошибку транспорта в категорию приема
func classifyReadError(err error, got, n int) error {
	detail := fmt.Errorf("получено %d из %d байт: %w", got, n, err)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return domain.NewStreamError(domain.KindTimeout, "read", detail)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewStreamError(domain.KindTimeout, "read", detail)
	}
	return domain.NewStreamError(domain.KindConnection, "read", detail)
}
