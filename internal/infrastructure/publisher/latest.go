package publisher

import (
	"sync"

	"camera-stream/internal/domain"
)

// Latest хранит только последний опубликованный кадр.
// Новый кадр безусловно заменяет предыдущий, очереди нет.
type Latest struct {
	mutex   sync.Mutex
	frame   *domain.DecodedFrame
	seq     uint64
	read    bool
	dropped uint64
}

// NewLatest создает пустой слот
func NewLatest() *Latest {
	return &Latest{read: true}
}

// Publish заменяет текущий кадр
func (l *Latest) Publish(frame *domain.DecodedFrame) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.read {
		l.dropped++
	}
	l.frame = frame
	l.seq++
	l.read = false
}

// Current возвращает последний кадр и его номер (0, если кадров не было)
func (l *Latest) Current() (*domain.DecodedFrame, uint64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.read = true
	return l.frame, l.seq
}

// Dropped число кадров, замененных до прочтения
func (l *Latest) Dropped() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.dropped
}
