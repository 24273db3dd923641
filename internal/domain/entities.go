package domain

import (
	"encoding/binary"
	"math"
	"math/bits"
	"time"
)

// HeaderSize размер заголовка кадра в режиме framed
const HeaderSize = 12

// ProtocolMode режим протокола на проводе
type ProtocolMode string

const (
	// ModeFramed каждый кадр предваряется 12-байтным заголовком
	ModeFramed ProtocolMode = "framed"
	// ModeFixed кадры фиксированного размера без заголовка
	ModeFixed ProtocolMode = "fixed"
)

// PixelLayout раскладка сэмплов в полезной нагрузке на проводе
type PixelLayout string

const (
	LayoutGray8  PixelLayout = "gray8"
	LayoutBGR24  PixelLayout = "bgr24"
	LayoutGray16 PixelLayout = "gray16"
)

// BytesPerPixel возвращает число байт на пиксель, 0 для неизвестной раскладки
func (l PixelLayout) BytesPerPixel() int {
	switch l {
	case LayoutGray8:
		return 1
	case LayoutGray16:
		return 2
	case LayoutBGR24:
		return 3
	default:
		return 0
	}
}

// LayoutForBytes подбирает раскладку по числу байт на сэмпл из заголовка
func LayoutForBytes(bytesPerSample uint32) (PixelLayout, bool) {
	switch bytesPerSample {
	case 1:
		return LayoutGray8, true
	case 2:
		return LayoutGray16, true
	case 3:
		return LayoutBGR24, true
	default:
		return "", false
	}
}

// PixelFormat формат пикселей, готовый для отображения
type PixelFormat int

const (
	FormatGray8 PixelFormat = iota
	FormatRGB24
	FormatGray16
)

// String возвращает имя формата
func (f PixelFormat) String() string {
	switch f {
	case FormatGray8:
		return "gray8"
	case FormatRGB24:
		return "rgb24"
	case FormatGray16:
		return "gray16"
	default:
		return "unknown"
	}
}

// FrameHeader геометрия кадра: ширина, высота, байт на сэмпл
type FrameHeader struct {
	Width          uint32
	Height         uint32
	BytesPerSample uint32
}

// PayloadLen длина полезной нагрузки в байтах.
// При переполнении uint64 возвращает math.MaxUint64.
func (h FrameHeader) PayloadLen() uint64 {
	hi, lo := bits.Mul64(uint64(h.Width)*uint64(h.Height), uint64(h.BytesPerSample))
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// MarshalBinary кодирует заголовок в 12 байт little-endian
func (h FrameHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Width)
	binary.LittleEndian.PutUint32(buf[4:8], h.Height)
	binary.LittleEndian.PutUint32(buf[8:12], h.BytesPerSample)
	return buf, nil
}

// DecodedFrame декодированный кадр. После создания не изменяется.
type DecodedFrame struct {
	Width  int
	Height int
	Format PixelFormat

	// Pix пиксели для FormatGray8 и FormatRGB24, построчно
	Pix []byte
	// Pix16 сэмплы для FormatGray16, построчно
	Pix16 []uint16

	// Placeholder пустой кадр, показываемый без активного соединения
	Placeholder bool
	ReceivedAt  time.Time
}

// NewPlaceholderFrame создает пустой (черный) кадр заданного размера
func NewPlaceholderFrame(width, height int, format PixelFormat) *DecodedFrame {
	f := &DecodedFrame{
		Width:       width,
		Height:      height,
		Format:      format,
		Placeholder: true,
		ReceivedAt:  time.Now(),
	}
	switch format {
	case FormatGray16:
		f.Pix16 = make([]uint16, width*height)
	case FormatRGB24:
		f.Pix = make([]byte, width*height*3)
	default:
		f.Pix = make([]byte, width*height)
	}
	return f
}

// SizeBytes размер пиксельного буфера в байтах
func (f *DecodedFrame) SizeBytes() int {
	if f.Format == FormatGray16 {
		return len(f.Pix16) * 2
	}
	return len(f.Pix)
}

// RawFrame кадр на стороне сервера в раскладке провода
type RawFrame struct {
	Header FrameHeader
	Layout PixelLayout
	Data   []byte
}

// Throughput отчет о пропускной способности сессии
type Throughput struct {
	FPS           float64
	BitsPerSecond float64
	FrameBytes    int
}
