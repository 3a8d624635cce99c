package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is an uploaded document with its extracted text.
type Document struct {
	ID         int64
	Filename   string
	Content    string
	UploadedAt time.Time
}

// DocumentSummary is a Document without its content, used for listings.
type DocumentSummary struct {
	ID         int64
	Filename   string
	UploadedAt time.Time
}

// ConversationTurn is one question/answer exchange within a session.
type ConversationTurn struct {
	ID        int64
	SessionID string
	Question  string
	Answer    string
	Model     string
	CreatedAt time.Time
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
