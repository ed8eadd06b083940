package workspace

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskmind/internal/logging"
)

// TaskFilter narrows a task lookup. Zero-value fields impose no constraint;
// provided fields combine with AND semantics.
type TaskFilter struct {
	ProjectID string
	Status    string
	Search    string // free-text match across title and description
}

// NoteFilter narrows a note lookup.
type NoteFilter struct {
	ProjectID string
	Search    string // free-text match across title and body
}

// ProjectFilter narrows a project lookup.
type ProjectFilter struct {
	Status string
	Search string // free-text match across name and description
}

// FileFilter narrows a file lookup.
type FileFilter struct {
	ProjectID  string
	TypePrefix string // content-type prefix, e.g. "image/"
	Search     string // free-text match on file name
}

// CreateProject inserts a project for the given user.
func (s *Store) CreateProject(creds Credentials, name, description string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Project{
		ID:          uuid.NewString(),
		UserID:      creds.UserID,
		Name:        name,
		Description: description,
		Status:      "active",
		CreatedAt:   time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, user_id, name, description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description, p.Status, p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	logging.StoreDebug("Created project %s for user %s", p.ID, creds.UserID)
	return p, nil
}

// CreateTask inserts a task for the given user.
func (s *Store) CreateTask(creds Credentials, projectID, title, description, status string, dueDate *time.Time) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == "" {
		status = "todo"
	}
	t := &Task{
		ID:          uuid.NewString(),
		UserID:      creds.UserID,
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      status,
		DueDate:     dueDate,
		CreatedAt:   time.Now(),
	}
	var due interface{}
	if dueDate != nil {
		due = dueDate.UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, user_id, project_id, title, description, status, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ProjectID, t.Title, t.Description, t.Status, due, t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	logging.StoreDebug("Created task %s for user %s", t.ID, creds.UserID)
	return t, nil
}

// CreateNote inserts a note for the given user.
func (s *Store) CreateNote(creds Credentials, projectID, title, body string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Note{
		ID:        uuid.NewString(),
		UserID:    creds.UserID,
		ProjectID: projectID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO notes (id, user_id, project_id, title, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.ProjectID, n.Title, n.Body, n.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	return n, nil
}

// CreateFile inserts a file record for the given user.
func (s *Store) CreateFile(creds Credentials, rec FileRecord) (*FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.UserID = creds.UserID
	rec.CreatedAt = time.Now()

	temp := 0
	if rec.Temporary {
		temp = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO files (id, user_id, project_id, file_name, content_type, size, temporary, storage_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.ProjectID, rec.FileName, rec.ContentType, rec.Size, temp, rec.StorageKey, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file: %w", err)
	}
	return &rec, nil
}

// ListTasks returns the caller's tasks matching the filter, newest first.
func (s *Store) ListTasks(creds Credentials, filter TaskFilter, limit int) ([]Task, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListTasks")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	where := []string{"user_id = ?"}
	args := []interface{}{creds.UserID}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT id, user_id, project_id, title, description, status, due_date, created_at
		 FROM tasks WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var due sql.NullInt64
		var created int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &due, &created); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if due.Valid {
			d := time.UnixMilli(due.Int64)
			t.DueDate = &d
		}
		t.CreatedAt = time.UnixMilli(created)
		tasks = append(tasks, t)
	}
	logging.StoreDebug("ListTasks: user=%s matched=%d limit=%d", creds.UserID, len(tasks), limit)
	return tasks, rows.Err()
}

// ListNotes returns the caller's notes matching the filter, newest first.
func (s *Store) ListNotes(creds Credentials, filter NoteFilter, limit int) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	where := []string{"user_id = ?"}
	args := []interface{}{creds.UserID}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Search != "" {
		where = append(where, "(title LIKE ? OR body LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT id, user_id, project_id, title, body, created_at
		 FROM notes WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var created int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProjectID, &n.Title, &n.Body, &created); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.CreatedAt = time.UnixMilli(created)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListProjects returns the caller's projects matching the filter, newest first.
func (s *Store) ListProjects(creds Credentials, filter ProjectFilter, limit int) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	where := []string{"user_id = ?"}
	args := []interface{}{creds.UserID}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, status, created_at
		 FROM projects WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var created int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = time.UnixMilli(created)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListFiles returns the caller's files matching the filter, newest first.
func (s *Store) ListFiles(creds Credentials, filter FileFilter, limit int) ([]FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	where := []string{"user_id = ?"}
	args := []interface{}{creds.UserID}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.TypePrefix != "" {
		where = append(where, "content_type LIKE ?")
		args = append(args, filter.TypePrefix+"%")
	}
	if filter.Search != "" {
		where = append(where, "file_name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT id, user_id, project_id, file_name, content_type, size, temporary, storage_key, created_at
		 FROM files WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var temp int
		var created int64
		if err := rows.Scan(&f.ID, &f.UserID, &f.ProjectID, &f.FileName, &f.ContentType, &f.Size, &temp, &f.StorageKey, &created); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Temporary = temp != 0
		f.CreatedAt = time.UnixMilli(created)
		files = append(files, f)
	}
	return files, rows.Err()
}
