package streaming

import (
	"net"
	"time"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
)

// Session принимает кадры из одного открытого соединения
type Session struct {
	reader    *FrameReader
	decoder   *Decoder
	publisher application.FramePublisher
	logger    application.Logger
	stats     *sessionStats

	// onReport вызывается при каждом отчете о пропускной способности
	onReport func(domain.Throughput)
}

// NewSession создает сессию приема
func NewSession(reader *FrameReader, decoder *Decoder, publisher application.FramePublisher,
	logger application.Logger, statsInterval int) *Session {
	return &Session{
		reader:    reader,
		decoder:   decoder,
		publisher: publisher,
		logger:    logger,
		stats:     newSessionStats(statsInterval),
	}
}

// Run читает кадры до ошибки или остановки. Соединение закрывается при выходе.
// Возвращает nil, если сессия завершилась по токену.
func (s *Session) Run(conn net.Conn, token *domain.CancelToken) error {
	defer conn.Close()

	s.stats.reset(time.Now())
	for {
		if token.Stopped() {
			return nil
		}

		header, layout, err := s.readHeader(conn)
		if token.Stopped() {
			return nil
		}
		if err != nil {
			return err
		}

		payload, err := s.reader.ReadExact(conn, int(header.PayloadLen()))
		if token.Stopped() {
			return nil
		}
		if err != nil {
			return err
		}

		frame, err := s.decoder.Decode(header, layout, payload)
		if err != nil {
			return err
		}

		if token.Stopped() {
			return nil
		}
		s.publisher.Publish(frame)

		if report, ok := s.stats.tick(time.Now(), len(payload)); ok {
			s.logger.Info("Данные: %.2f Мбит/с; FPS: %.2f", report.BitsPerSecond/1e6, report.FPS)
			if s.onReport != nil {
				s.onReport(report)
			}
		}
	}
}

// readHeader читает заголовок (framed) или возвращает фиксированную геометрию
func (s *Session) readHeader(conn net.Conn) (domain.FrameHeader, domain.PixelLayout, error) {
	if !s.decoder.Framed() {
		return s.decoder.FixedHeader(), domain.LayoutBGR24, nil
	}

	buf, err := s.reader.ReadExact(conn, domain.HeaderSize)
	if err != nil {
		return domain.FrameHeader{}, "", err
	}
	header, err := s.decoder.ParseHeader(buf)
	if err != nil {
		return header, "", err
	}
	layout, err := s.decoder.LayoutFor(header)
	if err != nil {
		return header, "", err
	}

	s.logger.Debug("Заголовок кадра: %dx%d, %d байт на сэмпл", header.Width, header.Height, header.BytesPerSample)
	return header, layout, nil
}

// sessionStats счетчики для расчета пропускной способности
type sessionStats struct {
	interval  int
	frames    int
	startTime time.Time
}

func newSessionStats(interval int) *sessionStats {
	if interval <= 0 {
		interval = domain.DefaultStatsInterval
	}
	return &sessionStats{interval: interval}
}

func (st *sessionStats) reset(now time.Time) {
	st.frames = 0
	st.startTime = now
}

// tick учитывает кадр и раз в interval кадров возвращает отчет
func (st *sessionStats) tick(now time.Time, frameBytes int) (domain.Throughput, bool) {
	st.frames++
	if st.frames < st.interval {
		return domain.Throughput{}, false
	}

	elapsed := now.Sub(st.startTime).Seconds()
	report := domain.Throughput{FrameBytes: frameBytes}
	if elapsed > 0 {
		report.FPS = float64(st.frames) / elapsed
		report.BitsPerSecond = report.FPS * float64(frameBytes) * 8
	}
	st.reset(now)
	return report, true
}
