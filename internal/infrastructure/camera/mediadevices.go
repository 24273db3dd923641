package camera

import (
	"context"
	"errors"
	"image"
	"image/color"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // Регистрируем драйвер камеры
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
)

// MediaDevicesSource источник кадров с камеры через библиотеку mediadevices
type MediaDevicesSource struct {
	track      *mediadevices.VideoTrack
	reader     video.Reader
	layout     domain.PixelLayout
	activeBits int
	logger     application.Logger
}

// ListDevices возвращает список доступных устройств захвата
func ListDevices() []mediadevices.MediaDeviceInfo {
	return mediadevices.EnumerateDevices()
}

// NewMediaDevicesSource открывает камеру с заданными параметрами
func NewMediaDevicesSource(config domain.ServerConfig, logger application.Logger) (*MediaDevicesSource, error) {
	constraints := mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			// Задаем предпочтительные параметры, но не строгие
			c.Width = prop.Int(config.Width)
			c.Height = prop.Int(config.Height)

			// Если указан конкретный ID устройства
			if config.DeviceID != "" {
				c.DeviceID = prop.String(config.DeviceID)
			}
		},
	}

	mediaStream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		logger.Error("Ошибка с исходными ограничениями: %v", err)

		// Пробуем с еще более простыми ограничениями
		logger.Info("Пробуем с минимальными ограничениями...")
		constraints = mediadevices.MediaStreamConstraints{
			Video: func(c *mediadevices.MediaTrackConstraints) {
				if config.DeviceID != "" {
					c.DeviceID = prop.String(config.DeviceID)
				}
			},
		}

		mediaStream, err = mediadevices.GetUserMedia(constraints)
		if err != nil {
			logger.Error("Не удалось получить доступ к медиа-устройству: %v", err)
			return nil, err
		}
	}

	videoTracks := mediaStream.GetVideoTracks()
	if len(videoTracks) == 0 {
		return nil, errors.New("видеотрек не обнаружен")
	}
	track, ok := videoTracks[0].(*mediadevices.VideoTrack)
	if !ok {
		videoTracks[0].Close()
		return nil, errors.New("трек не является видеотреком")
	}
	logger.Info("Используется камера: %s", track.ID())

	return &MediaDevicesSource{
		track:      track,
		reader:     track.NewReader(false),
		layout:     config.Layout,
		activeBits: config.ActiveBits,
		logger:     logger,
	}, nil
}

// Next читает кадр с камеры и переводит его в раскладку провода
func (m *MediaDevicesSource) Next(ctx context.Context) (*domain.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, release, err := m.reader.Read()
	if err != nil {
		return nil, err
	}
	defer release()

	return ImageToRaw(img, m.layout, m.activeBits), nil
}

// Close закрывает трек
func (m *MediaDevicesSource) Close() error {
	return m.track.Close()
}

// ImageToRaw переводит изображение в раскладку провода.
// Для gray16 значения сужаются до activeBits младших бит.
func ImageToRaw(img image.Image, layout domain.PixelLayout, activeBits int) *domain.RawFrame {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	bpp := layout.BytesPerPixel()
	data := make([]byte, width*height*bpp)
	shift := uint(16 - activeBits)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			switch layout {
			case domain.LayoutGray16:
				g := color.Gray16Model.Convert(c).(color.Gray16).Y >> shift
				data[i], data[i+1] = byte(g), byte(g>>8)
			case domain.LayoutGray8:
				data[i] = color.GrayModel.Convert(c).(color.Gray).Y
			case domain.LayoutBGR24:
				r, g, b, _ := c.RGBA()
				data[i], data[i+1], data[i+2] = byte(b>>8), byte(g>>8), byte(r>>8)
			}
			i += bpp
		}
	}

	return &domain.RawFrame{
		Header: domain.FrameHeader{
			Width:          uint32(width),
			Height:         uint32(height),
			BytesPerSample: uint32(bpp),
		},
		Layout: layout,
		Data:   data,
	}
}
