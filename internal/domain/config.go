package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Значения по умолчанию клиента
const (
	DefaultPort              = 42001
	DefaultTimeout           = 3 * time.Second
	DefaultBackoff           = 3 * time.Second
	DefaultActiveBits        = 12
	DefaultMaxPayloadBytes   = 64 << 20
	DefaultStatsInterval     = 20
	DefaultRecvBufferBytes   = 8 << 20
	DefaultPlaceholderWidth  = 1280
	DefaultPlaceholderHeight = 960
	DefaultFixedWidth        = 1920
	DefaultFixedHeight       = 1080
)

// StreamConfig конфигурация клиента приема кадров
type StreamConfig struct {
	Host string
	Port int

	// ReadTimeout дедлайн одного чтения ReadExact
	ReadTimeout time.Duration
	// Backoff пауза перед повторным подключением
	Backoff time.Duration

	Mode ProtocolMode
	// Width и Height задают геометрию только в режиме fixed
	Width  int
	Height int

	// Layout раскладка в режиме framed. Пусто: определять по заголовку.
	Layout          PixelLayout
	ActiveBits      int
	MaxPayloadBytes uint64
	StatsInterval   int

	// MaxAttempts и MaxDuration ограничивают переподключения, 0 без ограничений
	MaxAttempts int
	MaxDuration time.Duration

	PlaceholderWidth  int
	PlaceholderHeight int
	RecvBufferBytes   int
}

// DefaultStreamConfig возвращает конфигурацию по умолчанию
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Host:              "127.0.0.1",
		Port:              DefaultPort,
		ReadTimeout:       DefaultTimeout,
		Backoff:           DefaultBackoff,
		Mode:              ModeFramed,
		Width:             DefaultFixedWidth,
		Height:            DefaultFixedHeight,
		ActiveBits:        DefaultActiveBits,
		MaxPayloadBytes:   DefaultMaxPayloadBytes,
		StatsInterval:     DefaultStatsInterval,
		PlaceholderWidth:  DefaultPlaceholderWidth,
		PlaceholderHeight: DefaultPlaceholderHeight,
		RecvBufferBytes:   DefaultRecvBufferBytes,
	}
}

// Address адрес сервера host:port
func (c StreamConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FixedHeader геометрия кадра в режиме fixed
func (c StreamConfig) FixedHeader() FrameHeader {
	return FrameHeader{
		Width:          uint32(c.Width),
		Height:         uint32(c.Height),
		BytesPerSample: uint32(LayoutBGR24.BytesPerPixel()),
	}
}

// Validate проверяет конфигурацию
func (c StreamConfig) Validate() error {
	if c.Host == "" {
		return errors.New("не задан host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("некорректный порт: %d", c.Port)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("таймаут чтения должен быть положительным: %v", c.ReadTimeout)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("отрицательный интервал переподключения: %v", c.Backoff)
	}
	switch c.Mode {
	case ModeFramed:
		if c.Layout != "" && c.Layout.BytesPerPixel() == 0 {
			return fmt.Errorf("неизвестная раскладка пикселей: %q", c.Layout)
		}
	case ModeFixed:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("в режиме fixed нужны ширина и высота: %dx%d", c.Width, c.Height)
		}
		if c.FixedHeader().PayloadLen() > c.MaxPayloadBytes {
			return fmt.Errorf("размер кадра %d превышает max_payload_bytes %d",
				c.FixedHeader().PayloadLen(), c.MaxPayloadBytes)
		}
	default:
		return fmt.Errorf("неизвестный режим протокола: %q", c.Mode)
	}
	if c.ActiveBits < 1 || c.ActiveBits > 16 {
		return fmt.Errorf("active_bits вне диапазона 1..16: %d", c.ActiveBits)
	}
	if c.MaxPayloadBytes == 0 {
		return errors.New("max_payload_bytes должен быть положительным")
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats_interval должен быть положительным: %d", c.StatsInterval)
	}
	if c.MaxAttempts < 0 || c.MaxDuration < 0 {
		return errors.New("max_attempts и max_duration не могут быть отрицательными")
	}
	return nil
}

// ServerConfig конфигурация сервера кадров
type ServerConfig struct {
	ListenAddr string
	Mode       ProtocolMode
	Layout     PixelLayout
	Width      int
	Height     int
	ActiveBits int
	FPS        float64
	// QueueDepth глубина очереди кадров на клиента
	QueueDepth int
	Source     string
	DeviceID   string
}

// DefaultServerConfig возвращает конфигурацию сервера по умолчанию
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":" + strconv.Itoa(DefaultPort),
		Mode:       ModeFramed,
		Layout:     LayoutGray16,
		Width:      640,
		Height:     480,
		ActiveBits: DefaultActiveBits,
		FPS:        30,
		QueueDepth: 2,
		Source:     "pattern",
	}
}

// Validate проверяет конфигурацию сервера
func (c ServerConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("некорректный размер кадра: %dx%d", c.Width, c.Height)
	}
	if c.Layout.BytesPerPixel() == 0 {
		return fmt.Errorf("неизвестная раскладка пикселей: %q", c.Layout)
	}
	switch c.Mode {
	case ModeFramed:
	case ModeFixed:
		if c.Layout != LayoutBGR24 {
			return fmt.Errorf("режим fixed поддерживает только %s, задано %s", LayoutBGR24, c.Layout)
		}
	default:
		return fmt.Errorf("неизвестный режим протокола: %q", c.Mode)
	}
	if c.ActiveBits < 1 || c.ActiveBits > 16 {
		return fmt.Errorf("active_bits вне диапазона 1..16: %d", c.ActiveBits)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps должен быть положительным: %v", c.FPS)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("глубина очереди должна быть положительной: %d", c.QueueDepth)
	}
	switch c.Source {
	case "pattern", "camera":
	default:
		return fmt.Errorf("неизвестный источник кадров: %q", c.Source)
	}
	return nil
}
