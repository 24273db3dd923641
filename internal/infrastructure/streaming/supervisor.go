package streaming

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
)

// Dialer открывает соединение с сервером кадров
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Supervisor цикл подключения: connect, сессия, пустой кадр, пауза, повтор
type Supervisor struct {
	config    domain.StreamConfig
	dialer    Dialer
	publisher application.FramePublisher
	logger    application.Logger

	state atomic.Int32

	mutex          sync.Mutex
	attempts       int
	failures       int
	lastErr        error
	connectedSince time.Time
	throughput     domain.Throughput
}

// NewSupervisor создает супервизор. dialer == nil означает TCP-дайлер по умолчанию.
func NewSupervisor(config domain.StreamConfig, dialer Dialer, publisher application.FramePublisher,
	logger application.Logger) *Supervisor {
	if dialer == nil {
		dialer = NewTCPDialer(config.ReadTimeout, config.RecvBufferBytes)
	}
	return &Supervisor{
		config:    config,
		dialer:    dialer,
		publisher: publisher,
		logger:    logger,
	}
}

// Run работает до остановки токена. В ограниченном режиме возвращает
// domain.ErrRetriesExhausted после MaxAttempts попыток или MaxDuration.
func (s *Supervisor) Run(token *domain.CancelToken) error {
	defer s.setState(domain.StateStopped)

	address := s.config.Address()
	started := time.Now()
	attempts := 0

	for {
		if token.Stopped() {
			s.logger.Info("Остановка сетевого потока")
			return nil
		}
		if s.exhausted(attempts, started) {
			s.logger.Error("Прекращаем переподключение после %d попыток", attempts)
			return domain.ErrRetriesExhausted
		}

		s.setState(domain.StateConnecting)
		s.publishPlaceholder()
		attempts++
		s.recordAttempt(attempts)

		s.logger.Info("Подключение к %s (попытка %d)", address, attempts)
		conn, err := s.dialer.DialContext(token.Context(), "tcp", address)
		if err == nil {
			s.logger.Info("Соединение установлено: %s", conn.RemoteAddr())
			s.setConnected(time.Now())
			s.setState(domain.StateRunning)

			session := NewSession(NewFrameReader(s.config.ReadTimeout), NewDecoder(s.config),
				s.publisher, s.logger, s.config.StatsInterval)
			session.onReport = s.recordThroughput

			err = session.Run(conn, token)
			s.setConnected(time.Time{})
			if err == nil {
				s.logger.Info("Сессия завершена по запросу остановки")
				return nil
			}
		}

		if token.Stopped() {
			return nil
		}

		kind := domain.KindOf(err)
		s.recordFailure(err)
		s.logger.Error("Ошибка приема [%s]: %v", kind, err)
		s.publishPlaceholder()

		if s.exhausted(attempts, started) {
			s.logger.Error("Прекращаем переподключение после %d попыток", attempts)
			return domain.ErrRetriesExhausted
		}

		s.setState(domain.StateBackoff)
		s.logger.Info("Повторное подключение через %v", s.config.Backoff)
		if !token.Sleep(s.config.Backoff) {
			s.logger.Info("Остановка во время ожидания переподключения")
			return nil
		}
	}
}

// State текущее состояние
func (s *Supervisor) State() domain.SupervisorState {
	return domain.SupervisorState(s.state.Load())
}

// Status снимок состояния для отображения
func (s *Supervisor) Status() domain.ReceiverStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	status := domain.ReceiverStatus{
		State:         s.State().String(),
		Address:       s.config.Address(),
		Mode:          string(s.config.Mode),
		Attempts:      s.attempts,
		Failures:      s.failures,
		FPS:           s.throughput.FPS,
		BitsPerSecond: s.throughput.BitsPerSecond,
	}
	if s.lastErr != nil {
		status.LastErrorKind = domain.KindOf(s.lastErr).String()
		status.LastError = s.lastErr.Error()
	}
	if !s.connectedSince.IsZero() {
		since := s.connectedSince
		status.ConnectedSince = &since
	}
	return status
}

func (s *Supervisor) exhausted(attempts int, started time.Time) bool {
	if s.config.MaxAttempts > 0 && attempts >= s.config.MaxAttempts {
		return true
	}
	if s.config.MaxDuration > 0 && time.Since(started) >= s.config.MaxDuration {
		return true
	}
	return false
}

// publishPlaceholder публикует пустой кадр, чтобы не показывать устаревшее изображение
func (s *Supervisor) publishPlaceholder() {
	if s.config.Mode == domain.ModeFixed {
		s.publisher.Publish(domain.NewPlaceholderFrame(s.config.Width, s.config.Height, domain.FormatRGB24))
		return
	}
	s.publisher.Publish(domain.NewPlaceholderFrame(s.config.PlaceholderWidth, s.config.PlaceholderHeight,
		domain.FormatGray8))
}

func (s *Supervisor) setState(state domain.SupervisorState) {
	s.state.Store(int32(state))
}

func (s *Supervisor) recordAttempt(attempts int) {
	s.mutex.Lock()
	s.attempts = attempts
	s.mutex.Unlock()
}

func (s *Supervisor) recordFailure(err error) {
	s.mutex.Lock()
	s.failures++
	s.lastErr = err
	s.mutex.Unlock()
}

func (s *Supervisor) setConnected(t time.Time) {
	s.mutex.Lock()
	s.connectedSince = t
	if t.IsZero() {
		s.throughput = domain.Throughput{}
	}
	s.mutex.Unlock()
}

func (s *Supervisor) recordThroughput(report domain.Throughput) {
	s.mutex.Lock()
	s.throughput = report
	s.mutex.Unlock()
}
