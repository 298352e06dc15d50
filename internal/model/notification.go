package model

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is one transient user facing message
type Notice struct {
	ID        uuid.UUID `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNotice(severity Severity, message string) *Notice {
	return &Notice{
		ID:        uuid.New(),
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
