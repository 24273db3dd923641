package application

import (
	"context"
	"errors"
	"sync"

	"camera-stream/internal/domain"
)

// ViewerService владеет сетевым потоком приема кадров
type ViewerService struct {
	receiver Receiver
	store    FrameStore
	logger   Logger

	token *domain.CancelToken
	done  chan struct{}
	err   error
	mutex sync.Mutex
}

// NewViewerService создает сервис просмотра
func NewViewerService(receiver Receiver, store FrameStore, logger Logger) *ViewerService {
	return &ViewerService{
		receiver: receiver,
		store:    store,
		logger:   logger,
	}
}

// Start запускает сетевой поток
func (s *ViewerService) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.token != nil {
		return errors.New("прием уже запущен")
	}

	s.token = domain.NewCancelToken(ctx)
	s.done = make(chan struct{})

	token, done := s.token, s.done
	go func() {
		defer close(done)
		err := s.receiver.Run(token)
		if err != nil {
			s.logger.Error("Сетевой поток завершился с ошибкой: %v", err)
		}
		s.mutex.Lock()
		s.err = err
		s.mutex.Unlock()
	}()

	s.logger.Info("Сетевой поток запущен")
	return nil
}

// Stop устанавливает флаг остановки и ждет завершения сетевого потока
func (s *ViewerService) Stop() error {
	s.mutex.Lock()
	token, done := s.token, s.done
	s.mutex.Unlock()

	if token == nil {
		return errors.New("прием не запущен")
	}

	token.Stop()
	<-done

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.token = nil
	s.done = nil
	s.logger.Info("Сетевой поток остановлен")
	return s.err
}

// Done канал, закрываемый по завершении сетевого потока
func (s *ViewerService) Done() <-chan struct{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.done
}

// Current возвращает последний кадр для отображения
func (s *ViewerService) Current() (*domain.DecodedFrame, uint64) {
	return s.store.Current()
}

// Status возвращает состояние приема
func (s *ViewerService) Status() domain.ReceiverStatus {
	return s.receiver.Status()
}
