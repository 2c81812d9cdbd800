package model

import (
	"encoding/json"
	"time"
)

// ChatHistory is one recorded exchange between a user and an agent.
type ChatHistory struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id"`
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id,omitempty"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// FileUpload is a file attached to an agent conversation.
type FileUpload struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SystemMetric is a metric sample reported by an agent runtime.
type SystemMetric struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agent_id,omitempty"`
	MetricName  string          `json:"metric_name"`
	MetricValue float64         `json:"metric_value"`
	MetricUnit  string          `json:"metric_unit,omitempty"`
	Tags        json.RawMessage `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}
