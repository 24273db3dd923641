package camera

import (
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"camera-stream/internal/domain"
)

func TestPatternSource_Layouts(t *testing.T) {
	tests := []struct {
		layout domain.PixelLayout
		bpp    uint32
	}{
		{domain.LayoutGray8, 1},
		{domain.LayoutGray16, 2},
		{domain.LayoutBGR24, 3},
	}

	for _, tc := range tests {
		t.Run(string(tc.layout), func(t *testing.T) {
			src, err := NewPatternSource(8, 4, tc.layout, 12)
			if err != nil {
				t.Fatalf("NewPatternSource: %v", err)
			}
			frame, err := src.Next(context.Background())
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if frame.Header.BytesPerSample != tc.bpp || frame.Header.Width != 8 || frame.Header.Height != 4 {
				t.Errorf("заголовок %+v", frame.Header)
			}
			if uint64(len(frame.Data)) != frame.Header.PayloadLen() {
				t.Errorf("длина данных %d, заголовок %d", len(frame.Data), frame.Header.PayloadLen())
			}
		})
	}
}

func TestPatternSource_Gray16StaysInActiveRange(t *testing.T) {
	src, err := NewPatternSource(64, 64, domain.LayoutGray16, 12)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 3; n++ {
		frame, err := src.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < len(frame.Data); i += 2 {
			if v := binary.LittleEndian.Uint16(frame.Data[i:]); v > 4095 {
				t.Fatalf("сэмпл %d вне 12 бит", v)
			}
		}
	}
}

func TestPatternSource_Cancelled(t *testing.T) {
	src, _ := NewPatternSource(2, 2, domain.LayoutGray8, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Error("ожидалась ошибка отмененного контекста")
	}
}

func TestNewPatternSource_Invalid(t *testing.T) {
	if _, err := NewPatternSource(0, 2, domain.LayoutGray8, 8); err == nil {
		t.Error("нулевая ширина должна отклоняться")
	}
	if _, err := NewPatternSource(2, 2, "yuyv", 8); err == nil {
		t.Error("неизвестная раскладка должна отклоняться")
	}
}

func TestImageToRaw(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	bgr := ImageToRaw(img, domain.LayoutBGR24, 12)
	want := []byte{30, 20, 10, 255, 255, 255}
	for i := range want {
		if bgr.Data[i] != want[i] {
			t.Fatalf("BGR = %v, ожидалось %v", bgr.Data, want)
		}
	}

	gray := ImageToRaw(img, domain.LayoutGray16, 12)
	if v := binary.LittleEndian.Uint16(gray.Data[2:]); v != 4095 {
		t.Errorf("белый пиксель в 12 битах = %d, ожидалось 4095", v)
	}
	if gray.Header.BytesPerSample != 2 || gray.Header.Width != 2 {
		t.Errorf("заголовок %+v", gray.Header)
	}
}
