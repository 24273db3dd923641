package application

import (
	"context"

	"camera-stream/internal/domain"
)

// FramePublisher принимает декодированные кадры от сетевого потока
type FramePublisher interface {
	// Publish заменяет текущий кадр новым
	Publish(frame *domain.DecodedFrame)
}

// FrameStore выдает последний опубликованный кадр слою отображения
type FrameStore interface {
	FramePublisher

	// Current возвращает последний кадр и его порядковый номер
	Current() (*domain.DecodedFrame, uint64)
}

// Receiver интерфейс сетевого цикла приема кадров
type Receiver interface {
	// Run работает до срабатывания токена или исчерпания лимита попыток
	Run(token *domain.CancelToken) error

	// Status возвращает снимок состояния
	Status() domain.ReceiverStatus
}

// FrameSource источник кадров для сервера
type FrameSource interface {
	// Next возвращает следующий кадр в раскладке провода
	Next(ctx context.Context) (*domain.RawFrame, error)

	// Close освобождает устройство
	Close() error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}
