// Package datastore is a small JSON-file key-value store. Values live in
// memory and are flushed to disk by a background autosave loop; writes to
// the file are atomic (temp file + rename) and skipped when the content
// checksum has not changed.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds configuration options for the Store.
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration
	BackupCount      int // number of timestamped backups to keep, 0 disables backups
	Logger           zerolog.Logger
}

// DefaultConfig returns a default configuration for the given file path.
func DefaultConfig(filePath string) *Config {
	return &Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           zerolog.Nop(),
	}
}

// Store is the JSON-backed key-value store. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	data         map[string]json.RawMessage
	file         string
	config       *Config
	lastChecksum string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

// New creates a Store with default configuration.
func New(filePath string) (*Store, error) {
	return NewWithConfig(DefaultConfig(filePath))
}

// NewWithConfig creates a Store, loading existing data from disk if present
// and starting the autosave loop.
func NewWithConfig(config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		data:   make(map[string]json.RawMessage),
		file:   config.FilePath,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := os.Stat(config.FilePath); os.IsNotExist(err) {
		if err := s.writeFileAtomic([]byte("{}")); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create empty store file: %w", err)
		}
	} else if err == nil {
		if err := s.loadFromFile(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to load store file: %w", err)
		}
	} else {
		cancel()
		return nil, fmt.Errorf("failed to stat store file: %w", err)
	}

	s.wg.Add(1)
	go s.autoSave()

	return s, nil
}

// Set marshals value and stores it under key.
func (s *Store) Set(key string, value any) error {
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return fmt.Errorf("datastore is closed")
	}
	s.closeMu.RUnlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Get unmarshals the value stored under key into out. The first return is
// false when the key does not exist.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.RLock()
	raw, exists := s.data[key]
	s.mu.RUnlock()
	if !exists {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to unmarshal value for %q: %w", key, err)
	}
	return true, nil
}

// Delete removes a key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// SaveNow forces an immediate flush to disk.
func (s *Store) SaveNow() error {
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return fmt.Errorf("datastore is closed")
	}
	s.closeMu.RUnlock()
	return s.saveToFile()
}

// Close stops the autosave loop and performs a final flush.
func (s *Store) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.cancel()
	s.wg.Wait()
	return s.saveToFile()
}

func (s *Store) saveToFile() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	checksum := calculateChecksum(data)
	if checksum == s.lastChecksum {
		return nil
	}

	if s.config.BackupCount > 0 {
		if err := s.createBackup(); err != nil {
			s.config.Logger.Warn().Err(err).Msg("failed to create backup")
		}
	}

	if err := s.writeFileAtomic(data); err != nil {
		return err
	}

	s.lastChecksum = checksum
	return nil
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var temp map[string]json.RawMessage
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}
	if temp == nil {
		temp = make(map[string]json.RawMessage)
	}

	s.mu.Lock()
	s.data = temp
	s.mu.Unlock()
	s.lastChecksum = calculateChecksum(data)
	return nil
}

// writeFileAtomic writes via a temp file, fsyncs, and renames into place.
func (s *Store) writeFileAtomic(data []byte) error {
	tmpFile := s.file + ".tmp"

	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	f, err := os.OpenFile(tmpFile, os.O_RDWR, 0644)
	if err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpFile, s.file); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) createBackup() error {
	if _, err := os.Stat(s.file); os.IsNotExist(err) {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	backupFile := fmt.Sprintf("%s.backup.%s", s.file, timestamp)

	data, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(backupFile, data, 0644); err != nil {
		return err
	}

	s.cleanupOldBackups()
	return nil
}

func (s *Store) cleanupOldBackups() {
	matches, err := filepath.Glob(s.file + ".backup.*")
	if err != nil || len(matches) <= s.config.BackupCount {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil {
			files = append(files, fileInfo{match, info.ModTime()})
		}
	}

	// oldest first
	for i := 0; i < len(files)-1; i++ {
		for j := i + 1; j < len(files); j++ {
			if files[i].modTime.After(files[j].modTime) {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := 0; i < len(files)-s.config.BackupCount; i++ {
		os.Remove(files[i].path)
	}
}

func (s *Store) autoSave() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.saveToFile(); err != nil {
				s.config.Logger.Error().Err(err).Msg("auto-save error")
			}
		}
	}
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
