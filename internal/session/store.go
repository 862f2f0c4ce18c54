package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store reads and writes the single session record. There is no locking:
// concurrent dispatches may race on a refresh, and the acceptable outcome is
// a redundant re-login. The rename on save keeps every observed record whole.
type Store struct {
	path string
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load returns the persisted session, or nil when the file is missing or
// unreadable. A malformed record is logged and treated as absent; the caller
// will simply authenticate fresh.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	sess, err := decode(string(data))
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("discarding malformed session record")
		return nil, nil
	}
	return sess, nil
}

// Save overwrites the record. Write to a temp file in the same directory,
// then rename, so a concurrent Load never sees a partial record.
func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sess.encode()+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
