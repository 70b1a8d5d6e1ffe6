// Package progress persists the per-video curation workflow state: which
// videos have been reviewed, credited and synced, plus an append-only audit
// log of everything that touched the store.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"slidekb/config"
	"slidekb/types"
)

// Store is the curation progress tracker backed by a single JSON file.
// Writes are whole-file rewrite-on-save; concurrent writers are last-write-
// wins, so batch jobs funnel updates through one Store instance.
type Store struct {
	path string

	mu   sync.RWMutex
	file *types.ProgressFile
}

// Open loads (or initializes) the store at path. A corrupt file is treated
// as empty; the reconciliation path can rebuild its contents from disk state.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.file = emptyFile()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var file types.ProgressFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.file = emptyFile()
		return s, nil
	}
	if file.Videos == nil {
		file.Videos = make(map[string]*types.VideoProgress)
	}
	s.file = &file
	return s, nil
}

func emptyFile() *types.ProgressFile {
	return &types.ProgressFile{
		SchemaVersion: types.SchemaVersion,
		Videos:        make(map[string]*types.VideoProgress),
	}
}

// Get returns a copy of one video's progress record, or a fresh pending
// record if none exists yet.
func (s *Store) Get(videoID string) types.VideoProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.file.Videos[videoID]; ok {
		return *p
	}
	return types.VideoProgress{VideoID: videoID, Status: types.StatusPending}
}

/// Update is the single mutation path: applies fn to the video's record,
// re-derives the status, appends one audit entry and saves. Status can never
// be set directly.
func (s *Store) Update(videoID, action string, updates map[string]any, fn func(*types.VideoProgress)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.file.Videos[videoID]
	if !ok {
		p = &types.VideoProgress{
			VideoID:   videoID,
			Status:    types.StatusPending,
			CreatedAt: now,
		}
		s.file.Videos[videoID] = p
	}

	if fn != nil {
		fn(p)
	}
	p.UpdatedAt = now
	p.Status = p.DeriveStatus()

	s.file.AuditLog = append(s.file.AuditLog, types.AuditEntry{
		Timestamp: now,
		VideoID:   videoID,
		Action:    action,
		Updates:   updates,
	})
	if len(s.file.AuditLog) > config.AuditLogCap {
		s.file.AuditLog = s.file.AuditLog[len(s.file.AuditLog)-config.AuditLogCap:]
	}

	return s.save()
}

// MarkReviewed records a completed human review pass.
func (s *Store) MarkReviewed(videoID string, kept, removed int) error {
	return s.Update(videoID, "reviewed",
		map[string]any{"slides_kept": kept, "slides_removed": removed},
		func(p *types.VideoProgress) {
			p.Reviewed = true
			p.SlidesKept = kept
			p.SlidesRemoved = removed
		})
}

// MarkCreditsAdded records that the credit overlay has been applied.
func (s *Store) MarkCreditsAdded(videoID, creditText string) error {
	updates := map[string]any{}
	if creditText != "" {
		updates["credit_text"] = creditText
	}
	return s.Update(videoID, "credits_added", updates,
		func(p *types.VideoProgress) { p.CreditsAdded = true })
}

// MarkDuplicatesFixed records a transition-duplicate cleanup.
func (s *Store) MarkDuplicatesFixed(videoID string, fixedCount int) error {
	return s.Update(videoID, "duplicates_fixed",
		map[string]any{"fixed_count": fixedCount},
		func(p *types.VideoProgress) { p.DuplicatesFixed = true })
}

// MarkMetadataSynced records a completed sync-with-disk pass.
func (s *Store) MarkMetadataSynced(videoID string) error {
	return s.Update(videoID, "metadata_synced", nil,
		func(p *types.VideoProgress) { p.MetadataSynced = true })
}

// AuditLog returns a copy of the audit entries, oldest first.
func (s *Store) AuditLog() []types.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AuditEntry, len(s.file.AuditLog))
	copy(out, s.file.AuditLog)
	return out
}

// VideoIDs returns the tracked video IDs, sorted.
func (s *Store) VideoIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.file.Videos))
	for id := range s.file.Videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary groups tracked videos by derived status.
type Summary struct {
	Total        int      `json:"total"`
	Pending      []string `json:"pending"`
	Reviewed     []string `json:"reviewed"`
	CreditsAdded []string `json:"credits_added"`
	Completed    []string `json:"completed"`
}

// Summarize buckets every tracked video under its current status.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{Total: len(s.file.Videos)}
	ids := make([]string, 0, len(s.file.Videos))
	for id := range s.file.Videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		switch s.file.Videos[id].DeriveStatus() {
		case types.StatusCompleted:
			summary.Completed = append(summary.Completed, id)
		case types.StatusCreditsAdded:
			summary.CreditsAdded = append(summary.CreditsAdded, id)
		case types.StatusReviewed:
			summary.Reviewed = append(summary.Reviewed, id)
		default:
			summary.Pending = append(summary.Pending, id)
		}
	}
	return summary
}

// save rewrites the whole file. Caller holds the write lock.
func (s *Store) save() error {
	s.file.UpdatedAt = time.Now()
	if s.file.SchemaVersion == 0 {
		s.file.SchemaVersion = types.SchemaVersion
	}

	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}
	return nil
}
