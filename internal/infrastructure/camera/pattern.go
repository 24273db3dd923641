package camera

import (
	"context"
	"encoding/binary"
	"fmt"

	"camera-stream/internal/domain"
)

// PatternSource синтетический источник: диагональный градиент, сдвигающийся на кадр
type PatternSource struct {
	width      int
	height     int
	layout     domain.PixelLayout
	activeBits int
	frame      int
}

// NewPatternSource создает источник тестового изображения
func NewPatternSource(width, height int, layout domain.PixelLayout, activeBits int) (*PatternSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("некорректный размер кадра: %dx%d", width, height)
	}
	if layout.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("неизвестная раскладка пикселей: %q", layout)
	}
	return &PatternSource{
		width:      width,
		height:     height,
		layout:     layout,
		activeBits: activeBits,
	}, nil
}

// Next возвращает следующий кадр
func (p *PatternSource) Next(ctx context.Context) (*domain.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bpp := p.layout.BytesPerPixel()
	data := make([]byte, p.width*p.height*bpp)
	maxValue := uint32(1)<<uint(p.activeBits) - 1
	span := uint32(p.width + p.height)

	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			pos := uint32((x + y + p.frame) % int(span))
			i := (y*p.width + x) * bpp
			switch p.layout {
			case domain.LayoutGray16:
				binary.LittleEndian.PutUint16(data[i:], uint16(pos*maxValue/span))
			case domain.LayoutGray8:
				data[i] = byte(pos * 255 / span)
			case domain.LayoutBGR24:
				data[i] = byte(x * 255 / p.width)
				data[i+1] = byte(y * 255 / p.height)
				data[i+2] = byte(pos * 255 / span)
			}
		}
	}
	p.frame++

	return &domain.RawFrame{
		Header: domain.FrameHeader{
			Width:          uint32(p.width),
			Height:         uint32(p.height),
			BytesPerSample: uint32(bpp),
		},
		Layout: p.layout,
		Data:   data,
	}, nil
}

// Close ничего не освобождает
func (p *PatternSource) Close() error {
	return nil
}
