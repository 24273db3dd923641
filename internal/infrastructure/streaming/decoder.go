package streaming

import (
	"encoding/binary"
	"fmt"
	"time"

	"camera-stream/internal/domain"
)

// Decoder разбирает заголовки и восстанавливает пиксели из полезной нагрузки.
//
// В режиме framed геометрия приходит в каждом заголовке, в режиме fixed
// задается конфигурацией. Входной буфер не изменяется.
type Decoder struct {
	mode       domain.ProtocolMode
	layout     domain.PixelLayout
	fixed      domain.FrameHeader
	maxPayload uint64
	scale      uint32
}

// NewDecoder создает декодер по конфигурации клиента
func NewDecoder(config domain.StreamConfig) *Decoder {
	d := &Decoder{
		mode:       config.Mode,
		layout:     config.Layout,
		maxPayload: config.MaxPayloadBytes,
		scale:      RescaleFactor(config.ActiveBits),
	}
	if config.Mode == domain.ModeFixed {
		d.fixed = config.FixedHeader()
		d.layout = domain.LayoutBGR24
	}
	return d
}

// Framed сообщает, читается ли заголовок перед каждым кадром
func (d *Decoder) Framed() bool {
	return d.mode == domain.ModeFramed
}

// FixedHeader геометрия кадра режима fixed
func (d *Decoder) FixedHeader() domain.FrameHeader {
	return d.fixed
}

// ParseHeader разбирает 12-байтный заголовок
func (d *Decoder) ParseHeader(buf []byte) (domain.FrameHeader, error) {
	if len(buf) != domain.HeaderSize {
		return domain.FrameHeader{}, domain.NewStreamError(domain.KindMalformedHeader, "header",
			fmt.Errorf("длина заголовка %d, ожидалось %d", len(buf), domain.HeaderSize))
	}

	h := domain.FrameHeader{
		Width:          binary.LittleEndian.Uint32(buf[0:4]),
		Height:         binary.LittleEndian.Uint32(buf[4:8]),
		BytesPerSample: binary.LittleEndian.Uint32(buf[8:12]),
	}

	size := h.PayloadLen()
	if size == 0 {
		return h, domain.NewStreamError(domain.KindMalformedHeader, "header",
			fmt.Errorf("нулевой размер кадра %dx%dx%d", h.Width, h.Height, h.BytesPerSample))
	}
	if size > d.maxPayload {
		return h, domain.NewStreamError(domain.KindMalformedHeader, "header",
			fmt.Errorf("размер кадра %d превышает предел %d", size, d.maxPayload))
	}
	return h, nil
}

// LayoutFor определяет раскладку кадра с заданным заголовком
func (d *Decoder) LayoutFor(h domain.FrameHeader) (domain.PixelLayout, error) {
	if d.layout != "" {
		if uint32(d.layout.BytesPerPixel()) != h.BytesPerSample {
			return "", domain.NewStreamError(domain.KindDecode, "layout",
				fmt.Errorf("раскладка %s не совпадает с %d байт на сэмпл", d.layout, h.BytesPerSample))
		}
		return d.layout, nil
	}

	layout, ok := domain.LayoutForBytes(h.BytesPerSample)
	if !ok {
		return "", domain.NewStreamError(domain.KindDecode, "layout",
			fmt.Errorf("неподдерживаемое число байт на сэмпл: %d", h.BytesPerSample))
	}
	return layout, nil
}

// Decode строит кадр из полезной нагрузки
func (d *Decoder) Decode(h domain.FrameHeader, layout domain.PixelLayout, payload []byte) (*domain.DecodedFrame, error) {
	if uint64(len(payload)) != h.PayloadLen() {
		return nil, domain.NewStreamError(domain.KindDecode, "decode",
			fmt.Errorf("длина данных %d, ожидалось %d", len(payload), h.PayloadLen()))
	}

	frame := &domain.DecodedFrame{
		Width:      int(h.Width),
		Height:     int(h.Height),
		ReceivedAt: time.Now(),
	}

	switch layout {
	case domain.LayoutGray8:
		frame.Format = domain.FormatGray8
		frame.Pix = make([]byte, len(payload))
		copy(frame.Pix, payload)
	case domain.LayoutBGR24:
		frame.Format = domain.FormatRGB24
		frame.Pix = make([]byte, len(payload))
		ReverseChannels(frame.Pix, payload, 3)
	case domain.LayoutGray16:
		frame.Format = domain.FormatGray16
		frame.Pix16 = RescaleGray16(payload, d.scale)
	default:
		return nil, domain.NewStreamError(domain.KindDecode, "decode",
			fmt.Errorf("неподдерживаемая раскладка: %q", layout))
	}

	return frame, nil
}

// ReverseChannels переставляет каналы каждого пикселя в обратном порядке.
// Повторное применение восстанавливает исходный буфер.
func ReverseChannels(dst, src []byte, channels int) {
	for i := 0; i+channels <= len(src); i += channels {
		for c := 0; c < channels; c++ {
			dst[i+c] = src[i+channels-1-c]
		}
	}
}

// RescaleFactor целочисленный множитель floor(65535 / (2^bits - 1))
func RescaleFactor(activeBits int) uint32 {
	if activeBits <= 0 || activeBits >= 16 {
		return 1
	}
	return 65535 / (uint32(1)<<uint(activeBits) - 1)
}

// RescaleGray16 читает сэмплы little-endian и растягивает их на 16 бит.
// Значения за пределами активной глубины насыщаются до 65535.
func RescaleGray16(payload []byte, scale uint32) []uint16 {
	out := make([]uint16, len(payload)/2)
	for i := range out {
		v := uint32(binary.LittleEndian.Uint16(payload[2*i:])) * scale
		if v > 0xFFFF {
			v = 0xFFFF
		}
		out[i] = uint16(v)
	}
	return out
}
