package domain

import (
	"context"
	"time"
)

// CancelToken однократный сигнал остановки сетевого потока.
// Stop можно вызывать многократно и из любой горутины.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancelToken создает токен, который также срабатывает при отмене parent
func NewCancelToken(parent context.Context) *CancelToken {
	ctx, cancel := context.WithCancel(parent)
	return &CancelToken{ctx: ctx, cancel: cancel}
}

// Stop устанавливает флаг остановки
func (t *CancelToken) Stop() {
	t.cancel()
}

// Stopped неблокирующая проверка флага
func (t *CancelToken) Stopped() bool {
	return t.ctx.Err() != nil
}

// Done канал, закрываемый при остановке
func (t *CancelToken) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context контекст для операций, принимающих context.Context
func (t *CancelToken) Context() context.Context {
	return t.ctx
}

// Sleep ждет d или остановки. Возвращает false, если токен сработал.
func (t *CancelToken) Sleep(d time.Duration) bool {
	if t.Stopped() {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !t.Stopped()
	case <-t.ctx.Done():
		return false
	}
}
