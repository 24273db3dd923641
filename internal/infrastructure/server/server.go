package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
)

// Server раздает кадры источника всем подключенным клиентам по TCP
type Server struct {
	config domain.ServerConfig
	source application.FrameSource
	logger application.Logger

	mutex    sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	wg       sync.WaitGroup
}

type client struct {
	conn  net.Conn
	queue *frameQueue
}

// NewServer создает сервер кадров
func NewServer(config domain.ServerConfig, source application.FrameSource, logger application.Logger) *Server {
	return &Server{
		config:  config,
		source:  source,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Listen открывает TCP-порт
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("не удалось открыть порт %s: %w", s.config.ListenAddr, err)
	}
	s.mutex.Lock()
	s.listener = ln
	s.mutex.Unlock()
	s.logger.Info("Сервер кадров слушает %s, режим %s, %s", ln.Addr(), s.config.Mode, s.config.Layout)
	return nil
}

// Addr адрес, на котором слушает сервер
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve принимает клиентов и раздает кадры до отмены ctx
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	ln := s.listener
	s.mutex.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.captureLoop(ctx)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.shutdown()
				return nil
			}
			s.logger.Error("Ошибка приема подключения: %v", err)
			continue
		}

		c := &client{conn: conn, queue: newFrameQueue(s.config.QueueDepth)}
		s.mutex.Lock()
		s.clients[c] = struct{}{}
		s.mutex.Unlock()

		s.logger.Info("Клиент подключен: %s", conn.RemoteAddr())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveClient(ctx, c)
		}()
	}
}

// captureLoop забирает кадры из источника с частотой FPS
func (s *Server) captureLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Ошибка чтения кадра: %v", err)
			continue
		}

		if err := s.checkFrame(frame); err != nil {
			s.logger.Error("Кадр пропущен: %v", err)
			continue
		}

		s.mutex.Lock()
		for c := range s.clients {
			c.queue.push(frame)
		}
		s.mutex.Unlock()
	}
}

// checkFrame проверяет кадр источника. В режиме fixed на проводе нет заголовка,
// поэтому кадр другого размера сдвинул бы все последующие кадры у клиента.
func (s *Server) checkFrame(frame *domain.RawFrame) error {
	if s.config.Mode != domain.ModeFixed {
		return nil
	}
	want := domain.FrameHeader{
		Width:          uint32(s.config.Width),
		Height:         uint32(s.config.Height),
		BytesPerSample: uint32(domain.LayoutBGR24.BytesPerPixel()),
	}
	if frame.Layout != domain.LayoutBGR24 || frame.Header != want {
		return fmt.Errorf("режим fixed ожидает %s %dx%d, получено %s %dx%dx%d", domain.LayoutBGR24,
			want.Width, want.Height, frame.Layout, frame.Header.Width, frame.Header.Height, frame.Header.BytesPerSample)
	}
	return nil
}

// serveClient отправляет кадры одному клиенту до ошибки записи
func (s *Server) serveClient(ctx context.Context, c *client) {
	defer func() {
		s.mutex.Lock()
		delete(s.clients, c)
		s.mutex.Unlock()
		c.queue.close()
		c.conn.Close()
		s.logger.Info("Клиент отключен: %s, пропущено кадров: %d", c.conn.RemoteAddr(), c.queue.droppedFrames())
	}()

	sent := 0
	for {
		frame, ok := c.queue.pop(ctx)
		if !ok {
			return
		}
		if err := WriteFrame(c.conn, s.config.Mode, frame); err != nil {
			s.logger.Error("Ошибка отправки кадра: %v", err)
			return
		}
		sent++
		if sent%100 == 0 {
			s.logger.Debug("Отправлено кадров %s: %d", c.conn.RemoteAddr(), sent)
		}
	}
}

// shutdown закрывает клиентов и ждет завершения горутин
func (s *Server) shutdown() {
	s.mutex.Lock()
	for c := range s.clients {
		c.queue.close()
		c.conn.Close()
	}
	s.mutex.Unlock()
	s.wg.Wait()
	s.logger.Info("Сервер кадров остановлен")
}
