package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"camera-stream/internal/domain"
)

// File содержимое YAML-файла конфигурации клиента
type File struct {
	Host               string  `yaml:"host"`
	Port               int     `yaml:"port"`
	TimeoutSeconds     float64 `yaml:"timeout_seconds"`
	BackoffSeconds     float64 `yaml:"backoff_seconds"`
	Mode               string  `yaml:"mode"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	Layout             string  `yaml:"layout"`
	ActiveBits         int     `yaml:"active_bits"`
	MaxPayloadBytes    uint64  `yaml:"max_payload_bytes"`
	StatsInterval      int     `yaml:"stats_interval"`
	MaxAttempts        int     `yaml:"max_attempts"`
	MaxDurationSeconds float64 `yaml:"max_duration_seconds"`
	PlaceholderWidth   int     `yaml:"placeholder_width"`
	PlaceholderHeight  int     `yaml:"placeholder_height"`
	RecvBufferBytes    int     `yaml:"recv_buffer_bytes"`

	// HTTPAddr указатель, чтобы пустая строка в файле отключала отображение
	HTTPAddr  *string `yaml:"http_addr"`
	RefreshMS int     `yaml:"refresh_ms"`
	Debug     bool    `yaml:"debug"`
}

// Viewer полная конфигурация просмотрщика
type Viewer struct {
	Stream   domain.StreamConfig
	HTTPAddr string
	Refresh  time.Duration
	Debug    bool
}

// DefaultViewer возвращает конфигурацию по умолчанию
func DefaultViewer() Viewer {
	return Viewer{
		Stream:   domain.DefaultStreamConfig(),
		HTTPAddr: "127.0.0.1:8080",
		Refresh:  100 * time.Millisecond,
	}
}

// Load читает конфигурацию из файла. Пустой путь или отсутствующий файл дают значения по умолчанию.
func Load(path string) (Viewer, error) {
	cfg := DefaultViewer()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает YAML поверх значений по умолчанию
func Parse(data []byte) (Viewer, error) {
	cfg := DefaultViewer()

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("разбор конфигурации: %w", err)
	}
	f.apply(&cfg)
	return cfg, nil
}

// apply переносит заданные в файле значения в конфигурацию
func (f File) apply(cfg *Viewer) {
	s := &cfg.Stream
	if f.Host != "" {
		s.Host = f.Host
	}
	if f.Port != 0 {
		s.Port = f.Port
	}
	if f.TimeoutSeconds != 0 {
		s.ReadTimeout = seconds(f.TimeoutSeconds)
	}
	if f.BackoffSeconds != 0 {
		s.Backoff = seconds(f.BackoffSeconds)
	}
	if f.Mode != "" {
		s.Mode = domain.ProtocolMode(f.Mode)
	}
	if f.Width != 0 {
		s.Width = f.Width
	}
	if f.Height != 0 {
		s.Height = f.Height
	}
	if f.Layout != "" {
		s.Layout = domain.PixelLayout(f.Layout)
	}
	if f.ActiveBits != 0 {
		s.ActiveBits = f.ActiveBits
	}
	if f.MaxPayloadBytes != 0 {
		s.MaxPayloadBytes = f.MaxPayloadBytes
	}
	if f.StatsInterval != 0 {
		s.StatsInterval = f.StatsInterval
	}
	if f.MaxAttempts != 0 {
		s.MaxAttempts = f.MaxAttempts
	}
	if f.MaxDurationSeconds != 0 {
		s.MaxDuration = seconds(f.MaxDurationSeconds)
	}
	if f.PlaceholderWidth != 0 {
		s.PlaceholderWidth = f.PlaceholderWidth
	}
	if f.PlaceholderHeight != 0 {
		s.PlaceholderHeight = f.PlaceholderHeight
	}
	if f.RecvBufferBytes != 0 {
		s.RecvBufferBytes = f.RecvBufferBytes
	}
	if f.HTTPAddr != nil {
		cfg.HTTPAddr = *f.HTTPAddr
	}
	if f.RefreshMS != 0 {
		cfg.Refresh = time.Duration(f.RefreshMS) * time.Millisecond
	}
	cfg.Debug = cfg.Debug || f.Debug
}

// Validate проверяет конфигурацию просмотрщика
func (v Viewer) Validate() error {
	if err := v.Stream.Validate(); err != nil {
		return err
	}
	if v.HTTPAddr != "" && v.Refresh <= 0 {
		return fmt.Errorf("интервал обновления должен быть положительным: %v", v.Refresh)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
