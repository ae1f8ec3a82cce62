package models

import (
	"time"
)

// FileType of an uploaded source document.
type FileType string

const (
	PDF   FileType = "pdf"
	Image FileType = "image"
)

// DocumentMetadata describes an uploaded source document.
type DocumentMetadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	FileType  FileType  `json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	MimeType  string    `json:"mimeType"`
	Pages     int       `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
	Hash      string    `json:"hash"`
}

// ProcessingTask tracks one queued document conversion.
type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// ProcessingStatus of a conversion task.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
