package server

import (
	"fmt"
	"io"

	"camera-stream/internal/domain"
)

// WriteFrame пишет кадр в режиме mode.
//
// framed: [12 байт заголовка][данные]
// fixed:  [данные], только bgr24 фиксированного размера
func WriteFrame(w io.Writer, mode domain.ProtocolMode, frame *domain.RawFrame) error {
	if uint64(len(frame.Data)) != frame.Header.PayloadLen() {
		return fmt.Errorf("длина данных %d не совпадает с заголовком %d", len(frame.Data), frame.Header.PayloadLen())
	}

	switch mode {
	case domain.ModeFramed:
		hdr, err := frame.Header.MarshalBinary()
		if err != nil {
			return err
		}
		if _, err := w.Write(hdr); err != nil {
			return fmt.Errorf("отправка заголовка: %w", err)
		}
	case domain.ModeFixed:
		if frame.Layout != domain.LayoutBGR24 {
			return fmt.Errorf("режим fixed требует %s, получено %s", domain.LayoutBGR24, frame.Layout)
		}
	default:
		return fmt.Errorf("неизвестный режим протокола: %q", mode)
	}

	if _, err := w.Write(frame.Data); err != nil {
		return fmt.Errorf("отправка данных: %w", err)
	}
	return nil
}
