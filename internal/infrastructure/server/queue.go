package server

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"camera-stream/internal/domain"
)

// frameQueue ограниченная очередь кадров клиента: при переполнении
// выбрасывается самый старый кадр
type frameQueue struct {
	mutex   sync.Mutex
	cond    *sync.Cond
	items   *queue.Queue
	depth   int
	closed  bool
	dropped uint64
}

func newFrameQueue(depth int) *frameQueue {
	q := &frameQueue{
		items: queue.New(),
		depth: depth,
	}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

// push добавляет кадр, вытесняя старые
func (q *frameQueue) push(frame *domain.RawFrame) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return
	}
	for q.items.Length() >= q.depth {
		q.items.Remove()
		q.dropped++
	}
	q.items.Add(frame)
	q.cond.Signal()
}

// pop ждет кадр. Возвращает false, если очередь закрыта или ctx отменен.
func (q *frameQueue) pop(ctx context.Context) (*domain.RawFrame, bool) {
	stop := context.AfterFunc(ctx, q.close)
	defer stop()

	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.items.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	return q.items.Remove().(*domain.RawFrame), true
}

func (q *frameQueue) close() {
	q.mutex.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mutex.Unlock()
}

func (q *frameQueue) droppedFrames() uint64 {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.dropped
}
