// Package workspace implements the SQLite-backed workspace datastore:
// projects, tasks, notes, files, plus conversations and their messages.
// All reads are scoped by the calling user's credentials so access control
// lives at the store boundary.
package workspace

import "time"

// Credentials identifies the caller on whose behalf queries run.
type Credentials struct {
	UserID string
}

// Stored message roles. The assistant label is "ai" in storage and is
// translated to the provider's role name when a transcript is built.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Project is a grouping of tasks and notes.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"` // active, archived
	CreatedAt   time.Time `json:"created_at"`
}

// Task is a single actionable item.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	ProjectID   string     `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"` // todo, in_progress, done
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Note is a free-form text record.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ProjectID string    `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileRecord is metadata for an uploaded file. The bytes themselves live in
// external storage addressed by StorageKey; Temporary files sit in a staging
// location until attached to an entity.
type FileRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	ProjectID   string    `json:"project_id,omitempty"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Temporary   bool      `json:"temporary"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// Attachment references a file attached to a chat message.
type Attachment struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Temporary   bool   `json:"temporary"`
	StorageKey  string `json:"storage_key"`
}

// Message is one stored conversation message.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Role           string       `json:"role"` // RoleUser or RoleAI
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Conversation owns the message history and the compaction memory state.
type Conversation struct {
	ID               string     `json:"id"`
	UserID           string     `json:"-"`
	Title            string     `json:"title,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	LastSummarizedAt *time.Time `json:"last_summarized_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
