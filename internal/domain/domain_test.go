package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"testing"
	"time"
)

func TestStreamError_Is(t *testing.T) {
	err := fmt.Errorf("сессия: %w", NewStreamError(KindMalformedHeader, "заголовок", nil))

	if !errors.Is(err, ErrMalformedHeader) {
		t.Error("ожидалось совпадение с ErrMalformedHeader")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("лишнее совпадение с ErrTimeout")
	}
	if KindOf(err) != KindMalformedHeader {
		t.Errorf("KindOf = %s", KindOf(err))
	}

	wrapped := NewStreamError(KindConnection, "чтение", io.EOF)
	if !errors.Is(wrapped, io.EOF) || !errors.Is(wrapped, ErrConnectionClosed) {
		t.Error("обернутая ошибка должна совпадать с причиной и категорией")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{os.ErrDeadlineExceeded, KindTimeout},
		{fmt.Errorf("read: %w", os.ErrDeadlineExceeded), KindTimeout},
		{io.EOF, KindConnection},
		{errors.New("connection refused"), KindConnection},
		{NewStreamError(KindDecode, "decode", nil), KindDecode},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, ожидалось %s", tt.err, got, tt.want)
		}
	}
}

func TestCancelToken(t *testing.T) {
	token := NewCancelToken(context.Background())
	if token.Stopped() {
		t.Fatal("новый токен уже остановлен")
	}
	if !token.Sleep(time.Millisecond) {
		t.Error("Sleep без остановки должен вернуть true")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		token.Stop()
	}()
	start := time.Now()
	if token.Sleep(5 * time.Second) {
		t.Error("Sleep должен прерваться остановкой")
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep не прервался вовремя")
	}

	token.Stop()
	if !token.Stopped() || token.Sleep(time.Millisecond) {
		t.Error("остановленный токен")
	}
}

func TestCancelToken_Parent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	token := NewCancelToken(ctx)
	cancel()
	select {
	case <-token.Done():
	case <-time.After(time.Second):
		t.Fatal("токен не сработал при отмене родителя")
	}
}

func TestFrameHeader(t *testing.T) {
	h := FrameHeader{Width: 640, Height: 480, BytesPerSample: 2}
	if h.PayloadLen() != 640*480*2 {
		t.Errorf("PayloadLen = %d", h.PayloadLen())
	}
	huge := FrameHeader{Width: 2147516160, Height: 4294902273, BytesPerSample: 2}
	if huge.PayloadLen() != math.MaxUint64 {
		t.Errorf("переполнение не насыщено: %d", huge.PayloadLen())
	}

	b, err := h.MarshalBinary()
	if err != nil || len(b) != HeaderSize {
		t.Fatalf("MarshalBinary = %v, %v", b, err)
	}
	// 640 = 0x280 little-endian
	if b[0] != 0x80 || b[1] != 0x02 {
		t.Errorf("ширина закодирована как %v", b[:4])
	}
}

func TestLayoutForBytes(t *testing.T) {
	for bps, want := range map[uint32]PixelLayout{1: LayoutGray8, 2: LayoutGray16, 3: LayoutBGR24} {
		got, ok := LayoutForBytes(bps)
		if !ok || got != want {
			t.Errorf("LayoutForBytes(%d) = %q, %v", bps, got, ok)
		}
	}
	if _, ok := LayoutForBytes(4); ok {
		t.Error("4 байта на сэмпл не поддерживаются")
	}
}

func TestNewPlaceholderFrame(t *testing.T) {
	f := NewPlaceholderFrame(4, 2, FormatRGB24)
	if !f.Placeholder || len(f.Pix) != 4*2*3 {
		t.Errorf("заглушка %+v", f)
	}
	for _, b := range f.Pix {
		if b != 0 {
			t.Fatal("заглушка должна быть черной")
		}
	}
}
