package sessions

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrProtocolNotFound = errors.New("protocol not found")
)

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Session is one training session instance of a player running a protocol.
type Session struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"playerId"`
	ProtocolID  string     `json:"protocolId"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (s *Session) IsCompleted() bool {
	return s.Status == StatusCompleted
}
