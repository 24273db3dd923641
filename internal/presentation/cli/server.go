package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
	"camera-stream/internal/infrastructure/camera"
	"camera-stream/internal/infrastructure/logger"
	"camera-stream/internal/infrastructure/server"
)

// NewServerCommand создает корневую команду сервера кадров
func NewServerCommand() *cobra.Command {
	cfg := domain.DefaultServerConfig()
	var (
		mode        = string(cfg.Mode)
		layout      = string(cfg.Layout)
		debug       bool
		listDevices bool
	)

	cmd := &cobra.Command{
		Use:           "camserver",
		Short:         "Раздача кадров камеры или тестового шаблона по TCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Если нужно вывести список устройств
			if listDevices {
				return printDevices(cmd.OutOrStdout())
			}

			cfg.Mode = domain.ProtocolMode(mode)
			cfg.Layout = domain.PixelLayout(layout)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("некорректная конфигурация: %w", err)
			}
			return runServer(cmd.Context(), cfg, debug)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "адрес для входящих подключений")
	f.StringVar(&mode, "mode", mode, "режим протокола: framed или fixed")
	f.StringVar(&layout, "layout", layout, "раскладка пикселей: gray8, bgr24, gray16")
	f.IntVar(&cfg.Width, "width", cfg.Width, "ширина кадра")
	f.IntVar(&cfg.Height, "height", cfg.Height, "высота кадра")
	f.IntVar(&cfg.ActiveBits, "active-bits", cfg.ActiveBits, "число значащих бит в gray16")
	f.Float64Var(&cfg.FPS, "fps", cfg.FPS, "частота кадров")
	f.IntVar(&cfg.QueueDepth, "queue-depth", cfg.QueueDepth, "глубина очереди кадров на клиента")
	f.StringVar(&cfg.Source, "source", cfg.Source, "источник кадров: pattern или camera")
	f.StringVar(&cfg.DeviceID, "device", "", "ID устройства камеры для использования")
	f.BoolVar(&listDevices, "list-devices", false, "показать список доступных камер и выйти")
	f.BoolVar(&debug, "debug", false, "включить отладочные сообщения")

	return cmd
}

func runServer(parent context.Context, cfg domain.ServerConfig, debug bool) error {
	if parent == nil {
		parent = context.Background()
	}

	log, err := logger.NewZapLogger(debug)
	if err != nil {
		return fmt.Errorf("не удалось создать логгер: %w", err)
	}
	defer log.Sync()

	source, err := openSource(cfg, log.Named("camera"))
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, source, log.Named("server"))
	if err := srv.Listen(); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func openSource(cfg domain.ServerConfig, log application.Logger) (application.FrameSource, error) {
	if cfg.Source == "camera" {
		return camera.NewMediaDevicesSource(cfg, log)
	}
	return camera.NewPatternSource(cfg.Width, cfg.Height, cfg.Layout, cfg.ActiveBits)
}

// printDevices выводит список доступных устройств
func printDevices(w io.Writer) error {
	devices := camera.ListDevices()

	fmt.Fprintln(w, "Доступные устройства:")
	for i, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Label, device.DeviceID)
	}
	return nil
}
