package conversation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hoosh/hoosh/internal/log"
	"github.com/hoosh/hoosh/internal/message"
)

// SessionRetentionDays is the default age after which Cleanup removes a
// conversation directory, matching the teacher's session-store policy.
const SessionRetentionDays = 30

// Store persists conversations under baseDir/<id>/{metadata.json,messages.jsonl},
// per spec §6. Multiple Conversations may share one Store.
type Store struct {
	mu      sync.Mutex
	baseDir string
}

// NewStore creates a store rooted at baseDir, creating it if necessary.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) metadataPath(id string) string {
	return filepath.Join(s.dir(id), "metadata.json")
}

func (s *Store) messagesPath(id string) string {
	return filepath.Join(s.dir(id), "messages.jsonl")
}

func (s *Store) createMetadata(meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir(meta.ID), 0o755); err != nil {
		return err
	}
	return s.writeMetadataLocked(meta)
}

func (s *Store) saveMetadata(meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMetadataLocked(meta)
}

func (s *Store) writeMetadataLocked(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.metadataPath(meta.ID), data, 0o644)
}

func (s *Store) loadMetadata(id string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.metadataPath(id))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (s *Store) appendMessage(id string, m message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.messagesPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

func (s *Store) loadMessages(id string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.messagesPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var msgs []message.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m message.Message
		if err := json.Unmarshal(line, &m); err != nil {
			// A truncated trailing line from a crash mid-write is dropped,
			// not fatal: the repair step reconstructs consistency on load.
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, scanner.Err()
}

// logAppendFailure records a persistence failure without aborting the
// in-memory append (spec §4.1, §7: storage failures during append are
// logged but never abort a turn).
func (s *Store) logAppendFailure(id string, err error) {
	log.Logger().Warn("conversation store append failed",
		zap.String("conversation_id", id), zap.Error(err))
}

// List returns the metadata of all conversations in the store, most recently
// updated first.
func (s *Store) List() ([]Metadata, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.baseDir)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var metas []Metadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.loadMetadata(e.Name())
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].UpdatedAt.After(metas[j].UpdatedAt) })
	return metas, nil
}

// GetLatest returns the most recently updated conversation's metadata, if
// any exists.
func (s *Store) GetLatest() (Metadata, bool, error) {
	metas, err := s.List()
	if err != nil {
		return Metadata{}, false, err
	}
	if len(metas) == 0 {
		return Metadata{}, false, nil
	}
	return metas[0], true, nil
}

// Delete removes a conversation's directory entirely.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir(id))
}

// Cleanup removes conversations whose metadata UpdatedAt is older than
// SessionRetentionDays.
func (s *Store) Cleanup() (int, error) {
	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -SessionRetentionDays)
	removed := 0
	for _, meta := range metas {
		if meta.UpdatedAt.Before(cutoff) {
			if err := s.Delete(meta.ID); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
