// Package conversation persists the bounded per-user chat history the
// relay feeds back into the generation backend.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/zaprelay/zaprelay/internal/fsstore"
)

const defaultMaxHistory = 20

// Store keeps one JSON document per normalized user key. Loads tolerate
// missing or corrupt records by treating them as empty; appends run
// under a per-key file lock so load-modify-store cannot interleave.
type Store struct {
	dir        string
	locksDir   string
	maxHistory int
	logger     *slog.Logger
}

type Options struct {
	Dir        string
	LocksDir   string
	MaxHistory int
	Logger     *slog.Logger
}

func NewStore(opts Options) *Store {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if opts.LocksDir == "" {
		opts.LocksDir = filepath.Join(opts.Dir, ".locks")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		dir:        opts.Dir,
		locksDir:   opts.LocksDir,
		maxHistory: opts.MaxHistory,
		logger:     opts.Logger,
	}
}

// MaxHistory reports the cap in exchanges (user/assistant pairs).
func (s *Store) MaxHistory() int { return s.maxHistory }

// Load returns the persisted history for key, truncated to the most
// recent maxHistory exchanges. A missing, unreadable or structurally
// invalid record is logged and returned as empty, never as an error.
func (s *Store) Load(key string) []Turn {
	key = NormalizeKey(key)
	var turns []Turn
	ok, err := fsstore.ReadJSON(s.recordPath(key), &turns)
	if err != nil {
		s.logger.Warn("history_load_failed", "user_key", key, "error", err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	if !validTurns(turns) {
		s.logger.Warn("history_invalid_format", "user_key", key)
		return nil
	}
	return s.truncate(key, turns)
}

// Append records one exchange under the per-key lock and returns the
// updated, still-capped history.
func (s *Store) Append(ctx context.Context, key, userText, assistantText string) ([]Turn, error) {
	key = NormalizeKey(key)
	lockPath, err := fsstore.BuildLockPath(s.locksDir, "history."+key)
	if err != nil {
		return nil, fmt.Errorf("history lock for %s: %w", key, err)
	}

	var updated []Turn
	err = fsstore.WithLock(ctx, lockPath, func() error {
		turns := s.Load(key)
		now := time.Now().UTC()
		turns = append(turns,
			Turn{Role: RoleUser, Text: userText, At: now},
			Turn{Role: RoleAssistant, Text: assistantText, At: now},
		)
		turns = s.truncate(key, turns)
		if err := fsstore.WriteJSONAtomic(s.recordPath(key), turns, fsstore.FileOptions{}); err != nil {
			return fmt.Errorf("persist history for %s: %w", key, err)
		}
		updated = turns
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Clear removes the record for key. Clearing an absent record succeeds.
func (s *Store) Clear(key string) error {
	key = NormalizeKey(key)
	return fsstore.Remove(s.recordPath(key))
}

func (s *Store) recordPath(normalizedKey string) string {
	return filepath.Join(s.dir, normalizedKey+".json")
}

func (s *Store) truncate(key string, turns []Turn) []Turn {
	limit := s.maxHistory * 2
	if len(turns) <= limit {
		return turns
	}
	s.logger.Debug("history_trimmed", "user_key", key, "kept_exchanges", s.maxHistory)
	return turns[len(turns)-limit:]
}

func validTurns(turns []Turn) bool {
	for _, turn := range turns {
		if !validRole(turn.Role) {
			return false
		}
	}
	return true
}
