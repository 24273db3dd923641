package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
	"camera-stream/internal/infrastructure/config"
	"camera-stream/internal/infrastructure/display"
	"camera-stream/internal/infrastructure/logger"
	"camera-stream/internal/infrastructure/publisher"
	"camera-stream/internal/infrastructure/streaming"
)

// viewerFlags значения флагов просмотрщика, перекрывающие файл конфигурации
type viewerFlags struct {
	configPath    string
	host          string
	port          int
	timeout       time.Duration
	backoff       time.Duration
	mode          string
	width         int
	height        int
	layout        string
	activeBits    int
	maxPayload    uint64
	statsInterval int
	maxAttempts   int
	maxDuration   time.Duration
	recvBuffer    int
	httpAddr      string
	refresh       time.Duration
	debug         bool
}

// NewViewerCommand создает корневую команду просмотрщика
func NewViewerCommand() *cobra.Command {
	flags := &viewerFlags{}
	defaults := config.DefaultViewer()

	cmd := &cobra.Command{
		Use:           "camviewer",
		Short:         "Прием и отображение кадров камеры по TCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("некорректная конфигурация: %w", err)
			}
			return runViewer(cmd.Context(), cfg)
		},
	}

	flags.register(cmd.Flags(), defaults)
	return cmd
}

// register объявляет флаги со значениями по умолчанию из defaults
func (v *viewerFlags) register(f *pflag.FlagSet, defaults config.Viewer) {
	s := defaults.Stream
	f.StringVar(&v.configPath, "config", "", "путь к YAML-файлу конфигурации")
	f.StringVar(&v.host, "host", s.Host, "адрес сервера камеры")
	f.IntVar(&v.port, "port", s.Port, "порт сервера камеры")
	f.DurationVar(&v.timeout, "timeout", s.ReadTimeout, "таймаут одного чтения")
	f.DurationVar(&v.backoff, "backoff", s.Backoff, "пауза перед переподключением")
	f.StringVar(&v.mode, "mode", string(s.Mode), "режим протокола: framed или fixed")
	f.IntVar(&v.width, "width", s.Width, "ширина кадра в режиме fixed")
	f.IntVar(&v.height, "height", s.Height, "высота кадра в режиме fixed")
	f.StringVar(&v.layout, "layout", "", "раскладка пикселей: gray8, bgr24, gray16 (по умолчанию из заголовка)")
	f.IntVar(&v.activeBits, "active-bits", s.ActiveBits, "число значащих бит в gray16")
	f.Uint64Var(&v.maxPayload, "max-payload", s.MaxPayloadBytes, "максимальный размер кадра в байтах")
	f.IntVar(&v.statsInterval, "stats-interval", s.StatsInterval, "кадров между отчетами о скорости")
	f.IntVar(&v.maxAttempts, "max-attempts", 0, "лимит попыток подключения, 0 без ограничений")
	f.DurationVar(&v.maxDuration, "max-duration", 0, "лимит времени переподключений, 0 без ограничений")
	f.IntVar(&v.recvBuffer, "recv-buffer", s.RecvBufferBytes, "размер приемного буфера сокета")
	f.StringVar(&v.httpAddr, "http", defaults.HTTPAddr, "адрес веб-просмотра, пусто отключает")
	f.DurationVar(&v.refresh, "refresh", defaults.Refresh, "интервал обновления веб-просмотра")
	f.BoolVar(&v.debug, "debug", false, "включить отладочные сообщения")
}

// apply переносит явно заданные флаги поверх конфигурации из файла
func (v *viewerFlags) apply(set *pflag.FlagSet, cfg *config.Viewer) {
	s := &cfg.Stream
	set.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			s.Host = v.host
		case "port":
			s.Port = v.port
		case "timeout":
			s.ReadTimeout = v.timeout
		case "backoff":
			s.Backoff = v.backoff
		case "mode":
			s.Mode = domain.ProtocolMode(v.mode)
		case "width":
			s.Width = v.width
		case "height":
			s.Height = v.height
		case "layout":
			s.Layout = domain.PixelLayout(v.layout)
		case "active-bits":
			s.ActiveBits = v.activeBits
		case "max-payload":
			s.MaxPayloadBytes = v.maxPayload
		case "stats-interval":
			s.StatsInterval = v.statsInterval
		case "max-attempts":
			s.MaxAttempts = v.maxAttempts
		case "max-duration":
			s.MaxDuration = v.maxDuration
		case "recv-buffer":
			s.RecvBufferBytes = v.recvBuffer
		case "http":
			cfg.HTTPAddr = v.httpAddr
		case "refresh":
			cfg.Refresh = v.refresh
		case "debug":
			cfg.Debug = v.debug
		}
	})
}

func runViewer(parent context.Context, cfg config.Viewer) error {
	if parent == nil {
		parent = context.Background()
	}

	log, err := logger.NewZapLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("не удалось создать логгер: %w", err)
	}
	defer log.Sync()

	// Настраиваем обработку сигналов завершения
	ctx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store := publisher.NewLatest()
	supervisor := streaming.NewSupervisor(cfg.Stream, nil, store, log.Named("stream"))
	service := application.NewViewerService(supervisor, store, log)

	log.Info("Подключение к %s, режим %s", cfg.Stream.Address(), cfg.Stream.Mode)
	if err := service.Start(ctx); err != nil {
		return err
	}

	displayCtx, stopDisplay := context.WithCancel(ctx)
	defer stopDisplay()

	// nil канал блокирует select, если веб-просмотр отключен
	var displayDone chan error
	if cfg.HTTPAddr != "" {
		displayDone = make(chan error, 1)
		srv := display.NewServer(cfg.HTTPAddr, cfg.Refresh, store, service, log.Named("display"))
		go func() { displayDone <- srv.Run(displayCtx) }()
	} else {
		log.Info("Веб-просмотр отключен")
	}

	var displayErr error
	displayStopped := false
	select {
	case <-ctx.Done():
		log.Info("Прерывание получено, закрытие...")
	case <-service.Done():
	case displayErr = <-displayDone:
		displayStopped = true
		if displayErr != nil {
			log.Error("Веб-просмотр остановлен: %v", displayErr)
		}
	}

	streamErr := service.Stop()
	stopDisplay()
	if displayDone != nil && !displayStopped {
		displayErr = <-displayDone
	}

	if errors.Is(streamErr, domain.ErrRetriesExhausted) {
		return streamErr
	}
	return displayErr
}

// Execute запускает команду и завершает процесс с кодом 1 при ошибке
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
