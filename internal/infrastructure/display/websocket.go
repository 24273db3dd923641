package display

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"camera-stream/internal/application"
	"camera-stream/internal/domain"
)

const writeWait = 2 * time.Second

// FrameProvider источник последнего кадра
type FrameProvider interface {
	Current() (*domain.DecodedFrame, uint64)
}

// StatusProvider источник состояния приема
type StatusProvider interface {
	Status() domain.ReceiverStatus
}

type droppedCounter interface {
	Dropped() uint64
}

// Server показывает последний кадр в браузере через WebSocket
type Server struct {
	addr    string
	refresh time.Duration
	frames  FrameProvider
	status  StatusProvider
	logger  application.Logger

	upgrader websocket.Upgrader
	encoder  png.Encoder

	mutex   sync.Mutex
	viewers map[string]*websocket.Conn
}

// NewServer создает сервер отображения
func NewServer(addr string, refresh time.Duration, frames FrameProvider, status StatusProvider,
	logger application.Logger) *Server {
	return &Server{
		addr:    addr,
		refresh: refresh,
		frames:  frames,
		status:  status,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Разрешаем все подключения
			},
		},
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
		viewers: make(map[string]*websocket.Conn),
	}
}

// Handler возвращает HTTP-обработчик сервера
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Run обслуживает HTTP и рассылает кадры до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve работает на уже открытом listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: s.Handler()}
	s.logger.Info("Просмотр доступен на http://%s/", ln.Addr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.broadcastLoop(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			cancel()
			s.closeViewers()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	s.closeViewers()
	wg.Wait()
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, seq := s.frames.Current()
	resp := struct {
		domain.ReceiverStatus
		FrameSeq uint64 `json:"frame_seq"`
		Dropped  uint64 `json:"dropped_frames"`
		Viewers  int    `json:"viewers"`
	}{
		ReceiverStatus: s.status.Status(),
		FrameSeq:       seq,
		Viewers:        s.viewerCount(),
	}
	if dc, ok := s.frames.(droppedCounter); ok {
		resp.Dropped = dc.Dropped()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Ошибка кодирования статуса: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Ошибка обновления до WebSocket: %v", err)
		return
	}

	id := uuid.NewString()
	s.logger.Info("Зритель подключен: %s (%s)", id, r.RemoteAddr)

	// Сразу отправляем текущий кадр
	if frame, _ := s.frames.Current(); frame != nil {
		if data, err := EncodePNG(&s.encoder, frame); err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				conn.Close()
				return
			}
		}
	}

	s.mutex.Lock()
	s.viewers[id] = conn
	s.mutex.Unlock()

	// Чтение нужно для обработки управляющих сообщений и обнаружения закрытия
	go func() {
		defer s.removeViewer(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop опрашивает слот кадра и рассылает новые кадры
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.viewerCount() == 0 {
			continue
		}
		frame, seq := s.frames.Current()
		if frame == nil || seq == lastSeq {
			continue
		}
		lastSeq = seq

		data, err := EncodePNG(&s.encoder, frame)
		if err != nil {
			s.logger.Error("Ошибка кодирования кадра: %v", err)
			continue
		}
		s.broadcast(data)
	}
}

// broadcast отправляет сообщение всем зрителям, отключая тех, кому не удалось отправить
func (s *Server) broadcast(data []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, conn := range s.viewers {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			s.logger.Debug("Зритель %s отключен: %v", id, err)
			conn.Close()
			delete(s.viewers, id)
		}
	}
}

func (s *Server) removeViewer(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if conn, ok := s.viewers[id]; ok {
		conn.Close()
		delete(s.viewers, id)
		s.logger.Info("Зритель отключен: %s", id)
	}
}

func (s *Server) closeViewers() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, conn := range s.viewers {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
		delete(s.viewers, id)
	}
}

func (s *Server) viewerCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.viewers)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Camera live stream viewer</title>
<style>
body { margin: 0; background: #111; color: #ccc; font-family: sans-serif; }
#status { position: fixed; top: 4px; left: 8px; font-size: 12px; }
img { display: block; margin: 0 auto; max-width: 100vw; max-height: 100vh; image-rendering: pixelated; }
</style>
</head>
<body>
<div id="status">connecting</div>
<img id="frame" alt="">
<script>
const img = document.getElementById("frame");
const status = document.getElementById("status");
let url = null;
function connect() {
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.binaryType = "blob";
  ws.onmessage = (ev) => {
    const next = URL.createObjectURL(ev.data);
    img.onload = () => { if (url) URL.revokeObjectURL(url); url = next; };
    img.src = next;
  };
  ws.onclose = () => { setTimeout(connect, 1000); };
}
setInterval(() => {
  fetch("/status").then(r => r.json()).then(s => {
    status.textContent = s.state + " " + s.address + " " + s.fps.toFixed(1) + " fps";
  }).catch(() => { status.textContent = "offline"; });
}, 1000);
connect();
</script>
</body>
</html>
`
