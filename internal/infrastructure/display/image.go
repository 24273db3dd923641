package display

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"camera-stream/internal/domain"
)

// ToImage переводит декодированный кадр в image.Image
func ToImage(frame *domain.DecodedFrame) (image.Image, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("некорректный размер кадра %dx%d", frame.Width, frame.Height)
	}
	rect := image.Rect(0, 0, frame.Width, frame.Height)

	switch frame.Format {
	case domain.FormatGray8:
		if !matches(len(frame.Pix), frame.Width, frame.Height, 1) {
			return nil, fmt.Errorf("gray8: %d байт для %dx%d", len(frame.Pix), frame.Width, frame.Height)
		}
		img := image.NewGray(rect)
		copy(img.Pix, frame.Pix)
		return img, nil

	case domain.FormatRGB24:
		if !matches(len(frame.Pix), frame.Width, frame.Height, 3) {
			return nil, fmt.Errorf("rgb24: %d байт для %dx%d", len(frame.Pix), frame.Width, frame.Height)
		}
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(frame.Pix); i, j = i+3, j+4 {
			img.Pix[j] = frame.Pix[i]
			img.Pix[j+1] = frame.Pix[i+1]
			img.Pix[j+2] = frame.Pix[i+2]
			img.Pix[j+3] = 0xFF
		}
		return img, nil

	case domain.FormatGray16:
		if !matches(len(frame.Pix16), frame.Width, frame.Height, 1) {
			return nil, fmt.Errorf("gray16: %d сэмплов для %dx%d", len(frame.Pix16), frame.Width, frame.Height)
		}
		img := image.NewGray16(rect)
		// image.Gray16 хранит сэмплы big-endian
		for i, v := range frame.Pix16 {
			img.Pix[2*i] = byte(v >> 8)
			img.Pix[2*i+1] = byte(v)
		}
		return img, nil

	default:
		return nil, fmt.Errorf("неизвестный формат кадра: %s", frame.Format)
	}
}

// matches проверяет n == width*height*channels делением, без переполнения int
func matches(n, width, height, channels int) bool {
	if n%channels != 0 {
		return false
	}
	n /= channels
	return n%width == 0 && n/width == height
}

// EncodePNG кодирует кадр в PNG
func EncodePNG(encoder *png.Encoder, frame *domain.DecodedFrame) ([]byte, error) {
	img, err := ToImage(frame)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
