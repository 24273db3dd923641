package domain

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrorKind классификация ошибок приема
type ErrorKind int

const (
	// KindConnection отказ соединения, разрыв, EOF
	KindConnection ErrorKind = iota
	// KindTimeout чтение не уложилось в дедлайн
	KindTimeout
	// KindMalformedHeader заголовок с недопустимой геометрией
	KindMalformedHeader
	// KindDecode несовпадение длины или неподдерживаемая раскладка
	KindDecode
)

// String возвращает имя категории
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindMalformedHeader:
		return "malformed_header"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var (
	ErrConnectionClosed = errors.New("соединение закрыто")
	ErrTimeout          = errors.New("таймаут чтения")
	ErrMalformedHeader  = errors.New("некорректный заголовок кадра")
	ErrDecode           = errors.New("ошибка декодирования кадра")

	// ErrRetriesExhausted исчерпан лимит попыток или времени переподключения
	ErrRetriesExhausted = errors.New("лимит переподключений исчерпан")
)

var kindSentinels = map[ErrorKind]error{
	KindConnection:      ErrConnectionClosed,
	KindTimeout:         ErrTimeout,
	KindMalformedHeader: ErrMalformedHeader,
	KindDecode:          ErrDecode,
}

// StreamError ошибка приема с категорией и операцией
type StreamError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewStreamError создает ошибку заданной категории
func NewStreamError(kind ErrorKind, op string, err error) *StreamError {
	return &StreamError{Kind: kind, Op: op, Err: err}
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, kindSentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kindSentinels[e.Kind], e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с сентинелом ее категории
func (e *StreamError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf определяет категорию произвольной ошибки
func KindOf(err error) ErrorKind {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
