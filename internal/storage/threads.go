// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides thread persistence for kbchat.
//
// Threads are best-effort local JSON files under ~/.kbchat/threads/.
// There is no cross-device sync and no durability guarantee beyond the
// atomic write.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/kbchat-tui/internal/model"
	"github.com/jeranaias/kbchat-tui/internal/util"
)

// =============================================================================
// STORED THREAD TYPES
// =============================================================================

// StoredThread is the on-disk representation of a thread.
type StoredThread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*model.Message `json:"messages"`
}

// ThreadMeta contains metadata for listing threads.
type ThreadMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AgentID      string    `json:"agent_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// FromThread converts a live thread for persistence. Streaming content
// is frozen by the caller before saving.
func FromThread(t *model.Thread) *StoredThread {
	return &StoredThread{
		ID:        t.ID,
		Title:     t.Title,
		AgentID:   t.AgentID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Messages:  t.Messages,
	}
}

// ToThread converts a stored thread back into a live one.
func (st *StoredThread) ToThread() *model.Thread {
	return &model.Thread{
		ID:        st.ID,
		Title:     st.Title,
		AgentID:   st.AgentID,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
		Messages:  st.Messages,
	}
}

// =============================================================================
// THREAD STORE
// =============================================================================

// ThreadStore handles thread persistence.
type ThreadStore struct {
	// BaseDir is the directory for storing threads.
	// Default: ~/.kbchat/threads/
	BaseDir string

	// MaxThreads limits stored threads (0 = unlimited).
	MaxThreads int
}

// NewThreadStore creates a store under the user's home directory.
func NewThreadStore() (*ThreadStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewThreadStoreWithDir(filepath.Join(homeDir, ".kbchat", "threads"))
}

// NewThreadStoreWithDir creates a store with a custom directory.
func NewThreadStoreWithDir(baseDir string) (*ThreadStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ThreadStore{
		BaseDir:    baseDir,
		MaxThreads: 100,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a thread and returns its ID, generating one if unset.
func (s *ThreadStore) Save(thread *StoredThread) (string, error) {
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	if thread.Title == "" {
		thread.Title = s.generateTitle(thread)
	}

	thread.UpdatedAt = time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = thread.UpdatedAt
	}

	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.filePath(thread.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxThreads > 0 {
		s.enforceLimit()
	}
	return thread.ID, nil
}

// generateTitle creates a title from the first user message.
func (s *ThreadStore) generateTitle(thread *StoredThread) string {
	for _, msg := range thread.Messages {
		if msg.Role == model.RoleUser && msg.Content != "" {
			title := strings.ReplaceAll(msg.Content, "\n", " ")
			title = strings.ReplaceAll(title, "\r", "")
			return util.TruncateRunes(title, 50)
		}
	}
	return "New thread"
}

// enforceLimit removes the oldest threads if over limit.
func (s *ThreadStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxThreads {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxThreads
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a thread by ID.
func (s *ThreadStore) Load(id string) (*StoredThread, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}

	var thread StoredThread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// LoadByIndex loads a thread by its list position (0 = most recent).
func (s *ThreadStore) LoadByIndex(index int) (*StoredThread, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrThreadNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved threads (most recent first).
func (s *ThreadStore) List() ([]ThreadMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ThreadMeta{}, nil
		}
		return nil, err
	}

	var metas []ThreadMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		thread, err := s.Load(id)
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, ThreadMeta{
			ID:           thread.ID,
			Title:        thread.Title,
			AgentID:      thread.AgentID,
			CreatedAt:    thread.CreatedAt,
			UpdatedAt:    thread.UpdatedAt,
			MessageCount: len(thread.Messages),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search finds threads whose title or message content matches the query
// (case-insensitive).
func (s *ThreadStore) Search(query string) ([]ThreadMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	query = strings.ToLower(query)
	var results []ThreadMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) {
			results = append(results, meta)
			continue
		}
		thread, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range thread.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a thread by ID.
func (s *ThreadStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrThreadNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved threads.
func (s *ThreadStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a thread ID.
func (s *ThreadStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrThreadNotFound is returned when a thread doesn't exist.
// Use errors.Is(err, ErrThreadNotFound) to check for this error.
var ErrThreadNotFound = &ThreadError{Message: "thread not found"}

// ThreadError represents a thread-storage error.
type ThreadError struct {
	Message string
}

// Error implements the error interface.
func (e *ThreadError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *ThreadError) Is(target error) bool {
	t, ok := target.(*ThreadError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatThreadList formats thread metadata as a plain table for the CLI.
func FormatThreadList(metas []ThreadMeta) string {
	if len(metas) == 0 {
		return "No threads found."
	}

	var sb strings.Builder
	sb.WriteString("Threads:\n")
	sb.WriteString("--------------------------------------------------------------\n")
	sb.WriteString(util.PadRight("ID", 38) + " " + util.PadRight("Updated", 17) + " " + util.PadRight("Msgs", 5) + " Title\n")
	sb.WriteString("--------------------------------------------------------------\n")

	for _, m := range metas {
		sb.WriteString(util.PadRight(m.ID, 38) + " " +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(itoa(m.MessageCount), 5) + " " +
			util.TruncateWidth(m.Title, 40) + "\n")
	}
	return sb.String()
}

// itoa avoids pulling fmt in for one integer.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
