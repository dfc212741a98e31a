package health

import (
	"context"
	"time"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusDisabled    = "disabled"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report is the readiness payload.
type Report struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Service encapsulates readiness checks. A nil DB means the process runs on
// in-memory repositories.
type Service struct {
	DB Pinger
}

// NewService constructs a new health service.
func NewService(db Pinger) *Service {
	return &Service{DB: db}
}

// Ready reports whether dependencies answer. Status is ok unless a
// configured database fails to respond.
func (s *Service) Ready(ctx context.Context) Report {
	if s.DB == nil {
		return Report{Status: StatusOK, Database: StatusDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return Report{Status: StatusUnavailable, Database: StatusUnavailable}
	}
	return Report{Status: StatusOK, Database: StatusOK}
}
