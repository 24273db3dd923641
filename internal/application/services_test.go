package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"camera-stream/internal/domain"
)

type blockingReceiver struct {
	result    error
	exitEarly bool
}

func (r *blockingReceiver) Run(token *domain.CancelToken) error {
	if !r.exitEarly {
		<-token.Done()
	}
	return r.result
}

func (r *blockingReceiver) Status() domain.ReceiverStatus {
	return domain.ReceiverStatus{State: domain.StateRunning.String()}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type slot struct {
	frame *domain.DecodedFrame
	seq   uint64
}

func (s *slot) Publish(frame *domain.DecodedFrame) {
	s.frame = frame
	s.seq++
}

func (s *slot) Current() (*domain.DecodedFrame, uint64) {
	return s.frame, s.seq
}

func TestViewerService_StartStop(t *testing.T) {
	svc := NewViewerService(&blockingReceiver{}, &slot{}, nopLogger{})

	if err := svc.Stop(); err == nil {
		t.Error("Stop до Start должен вернуть ошибку")
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Error("повторный Start должен вернуть ошибку")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- svc.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop не дождался сетевого потока")
	}

	// После остановки сервис можно запустить снова
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("перезапуск: %v", err)
	}
	svc.Stop()
}

func TestViewerService_ReceiverError(t *testing.T) {
	svc := NewViewerService(&blockingReceiver{result: domain.ErrRetriesExhausted, exitEarly: true},
		&slot{}, nopLogger{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("Done не закрыт после завершения приема")
	}
	if err := svc.Stop(); !errors.Is(err, domain.ErrRetriesExhausted) {
		t.Errorf("Stop = %v", err)
	}
}

func TestViewerService_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewViewerService(&blockingReceiver{}, &slot{}, nopLogger{})
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("отмена родительского контекста не остановила прием")
	}
	svc.Stop()
}

func TestViewerService_Passthrough(t *testing.T) {
	store := &slot{}
	svc := NewViewerService(&blockingReceiver{}, store, nopLogger{})
	store.Publish(domain.NewPlaceholderFrame(2, 2, domain.FormatGray8))

	frame, seq := svc.Current()
	if frame == nil || seq != 1 {
		t.Errorf("Current = %v, %d", frame, seq)
	}
	if svc.Status().State != "running" {
		t.Errorf("Status = %+v", svc.Status())
	}
}
