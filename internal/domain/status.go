package domain

import "time"

// SupervisorState состояние цикла переподключения
type SupervisorState int32

const (
	StateIdle SupervisorState = iota
	StateConnecting
	StateRunning
	StateBackoff
	StateStopped
)

// String возвращает имя состояния
func (s SupervisorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ReceiverStatus снимок состояния клиента для отображения
type ReceiverStatus struct {
	State          string     `json:"state"`
	Address        string     `json:"address"`
	Mode           string     `json:"mode"`
	Attempts       int        `json:"attempts"`
	Failures       int        `json:"failures"`
	LastErrorKind  string     `json:"last_error_kind,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	FPS            float64    `json:"fps"`
	BitsPerSecond  float64    `json:"bits_per_second"`
}
