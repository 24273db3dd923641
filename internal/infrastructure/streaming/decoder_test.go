package streaming

import (
	"bytes"
	"errors"
	"testing"

	"camera-stream/internal/domain"
)

func framedConfig() domain.StreamConfig {
	cfg := domain.DefaultStreamConfig()
	cfg.Mode = domain.ModeFramed
	return cfg
}

func header(w, h, bps uint32) []byte {
	buf, _ := domain.FrameHeader{Width: w, Height: h, BytesPerSample: bps}.MarshalBinary()
	return buf
}

func TestDecoder_ParseHeader(t *testing.T) {
	d := NewDecoder(framedConfig())

	tests := []struct {
		w, h, bps uint32
	}{
		{4, 2, 2},
		{1, 1, 1},
		{1920, 1080, 3},
		{1280, 960, 2},
		{7, 13, 1},
	}

	for _, tc := range tests {
		got, err := d.ParseHeader(header(tc.w, tc.h, tc.bps))
		if err != nil {
			t.Errorf("ParseHeader(%d,%d,%d): %v", tc.w, tc.h, tc.bps, err)
			continue
		}
		want := uint64(tc.w) * uint64(tc.h) * uint64(tc.bps)
		if got.PayloadLen() != want {
			t.Errorf("PayloadLen(%d,%d,%d) = %d, ожидалось %d", tc.w, tc.h, tc.bps, got.PayloadLen(), want)
		}
	}
}

func TestDecoder_ParseHeader_Malformed(t *testing.T) {
	cfg := framedConfig()
	cfg.MaxPayloadBytes = 1 << 20
	d := NewDecoder(cfg)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"zero width", header(0, 10, 2)},
		{"zero height", header(10, 0, 2)},
		{"zero bytes per sample", header(10, 10, 0)},
		{"over ceiling", header(1024, 1024, 2)},
		{"garbage", header(0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF)},
		{"short", []byte{1, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.ParseHeader(tc.buf)
			if !errors.Is(err, domain.ErrMalformedHeader) {
				t.Errorf("ожидалась ошибка заголовка, получено %v", err)
			}
		})
	}
}

func TestDecoder_ParseHeader_ProductOverflow(t *testing.T) {
	// Произведение этих полей по модулю 2^64 меньше предела по умолчанию
	d := NewDecoder(framedConfig())

	for _, buf := range [][]byte{
		header(2147516160, 4294902273, 2),
		header(2147506454, 2863281123, 3),
	} {
		h, err := d.ParseHeader(buf)
		if !errors.Is(err, domain.ErrMalformedHeader) {
			t.Errorf("%dx%dx%d: ожидалась ошибка заголовка, получено %v", h.Width, h.Height, h.BytesPerSample, err)
		}
	}
}

func TestDecoder_LayoutFor(t *testing.T) {
	d := NewDecoder(framedConfig())

	for bps, want := range map[uint32]domain.PixelLayout{
		1: domain.LayoutGray8,
		2: domain.LayoutGray16,
		3: domain.LayoutBGR24,
	} {
		got, err := d.LayoutFor(domain.FrameHeader{Width: 1, Height: 1, BytesPerSample: bps})
		if err != nil || got != want {
			t.Errorf("LayoutFor(bps=%d) = %s, %v; ожидалось %s", bps, got, err, want)
		}
	}

	if _, err := d.LayoutFor(domain.FrameHeader{Width: 1, Height: 1, BytesPerSample: 4}); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("bps=4: ожидалась ошибка декодирования, получено %v", err)
	}

	cfg := framedConfig()
	cfg.Layout = domain.LayoutGray16
	fixedLayout := NewDecoder(cfg)
	if _, err := fixedLayout.LayoutFor(domain.FrameHeader{Width: 1, Height: 1, BytesPerSample: 1}); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("несовпадение раскладки: ожидалась ошибка, получено %v", err)
	}
}

func TestRescaleFactor(t *testing.T) {
	tests := []struct {
		bits int
		want uint32
	}{
		{8, 257},
		{10, 64},
		{12, 16},
		{14, 4},
		{16, 1},
	}
	for _, tc := range tests {
		if got := RescaleFactor(tc.bits); got != tc.want {
			t.Errorf("RescaleFactor(%d) = %d, ожидалось %d", tc.bits, got, tc.want)
		}
	}
}

func TestRescaleGray16(t *testing.T) {
	scale := RescaleFactor(12)

	// 0, 1, 2048, 4095 и значение за пределами 12 бит
	payload := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x08, 0xFF, 0x0F, 0xFF, 0xFF}
	got := RescaleGray16(payload, scale)
	want := []uint16{0, 16, 32768, 4095 * 16, 0xFFFF}

	if len(got) != len(want) {
		t.Fatalf("len = %d, ожидалось %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, ожидалось %d", i, got[i], want[i])
		}
	}

	// монотонность на всем 12-битном диапазоне
	var prev uint16
	buf := make([]byte, 2)
	for v := 0; v < 4096; v++ {
		buf[0], buf[1] = byte(v), byte(v>>8)
		out := RescaleGray16(buf, scale)[0]
		if out < prev {
			t.Fatalf("нарушена монотонность на %d: %d < %d", v, out, prev)
		}
		prev = out
	}
}

func TestReverseChannels_Involution(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	once := make([]byte, len(src))
	twice := make([]byte, len(src))

	ReverseChannels(once, src, 3)
	if !bytes.Equal(once, []byte{3, 2, 1, 6, 5, 4, 9, 8, 7}) {
		t.Errorf("ReverseChannels = %v", once)
	}
	ReverseChannels(twice, once, 3)
	if !bytes.Equal(twice, src) {
		t.Errorf("повторная перестановка не восстановила буфер: %v", twice)
	}
}

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder(framedConfig())

	t.Run("gray16", func(t *testing.T) {
		h := domain.FrameHeader{Width: 2, Height: 1, BytesPerSample: 2}
		payload := []byte{0x01, 0x00, 0xFF, 0x0F}
		original := append([]byte(nil), payload...)

		frame, err := d.Decode(h, domain.LayoutGray16, payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if frame.Format != domain.FormatGray16 || frame.Width != 2 || frame.Height != 1 {
			t.Errorf("кадр %s %dx%d", frame.Format, frame.Width, frame.Height)
		}
		if frame.Pix16[0] != 16 || frame.Pix16[1] != 4095*16 {
			t.Errorf("Pix16 = %v", frame.Pix16)
		}
		if !bytes.Equal(payload, original) {
			t.Error("декодирование изменило входной буфер")
		}
	})

	t.Run("bgr24", func(t *testing.T) {
		h := domain.FrameHeader{Width: 1, Height: 1, BytesPerSample: 3}
		payload := []byte{10, 20, 30}
		frame, err := d.Decode(h, domain.LayoutBGR24, payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if frame.Format != domain.FormatRGB24 || !bytes.Equal(frame.Pix, []byte{30, 20, 10}) {
			t.Errorf("кадр %s %v", frame.Format, frame.Pix)
		}
		if !bytes.Equal(payload, []byte{10, 20, 30}) {
			t.Error("декодирование изменило входной буфер")
		}
	})

	t.Run("gray8", func(t *testing.T) {
		h := domain.FrameHeader{Width: 3, Height: 1, BytesPerSample: 1}
		frame, err := d.Decode(h, domain.LayoutGray8, []byte{1, 2, 3})
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if frame.Format != domain.FormatGray8 || !bytes.Equal(frame.Pix, []byte{1, 2, 3}) {
			t.Errorf("кадр %s %v", frame.Format, frame.Pix)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		h := domain.FrameHeader{Width: 2, Height: 2, BytesPerSample: 2}
		if _, err := d.Decode(h, domain.LayoutGray16, make([]byte, 7)); !errors.Is(err, domain.ErrDecode) {
			t.Errorf("ожидалась ошибка декодирования, получено %v", err)
		}
	})

	t.Run("unknown layout", func(t *testing.T) {
		h := domain.FrameHeader{Width: 1, Height: 1, BytesPerSample: 4}
		if _, err := d.Decode(h, "rgba32", make([]byte, 4)); !errors.Is(err, domain.ErrDecode) {
			t.Errorf("ожидалась ошибка декодирования, получено %v", err)
		}
	})
}

func TestDecoder_FixedMode(t *testing.T) {
	cfg := domain.DefaultStreamConfig()
	cfg.Mode = domain.ModeFixed
	cfg.Width, cfg.Height = 2, 1
	d := NewDecoder(cfg)

	if d.Framed() {
		t.Fatal("режим fixed не должен читать заголовок")
	}
	h := d.FixedHeader()
	if h.PayloadLen() != 6 {
		t.Errorf("PayloadLen = %d, ожидалось 6", h.PayloadLen())
	}
}
