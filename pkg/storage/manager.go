package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
)

// Manager handles the output directory: existence checks, atomic writes and
// timestamp restoration
type Manager struct {
	outputDir string
	present   map[string]bool
	logger    logger.Logger
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	manager := &Manager{
		outputDir: outputDir,
		present:   make(map[string]bool),
		logger:    log,
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records the non-empty regular files already on disk
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) == ".tmp" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		m.present[entry.Name()] = true
	}

	m.logger.DebugWithFields("Scanned output directory", map[string]interface{}{
		"dir":   m.outputDir,
		"files": len(m.present),
	})
	return nil
}

// Path returns where name lives inside the output directory. Remote names
// are reduced to their base name so they cannot escape the directory.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, filepath.Base(name))
}

// Exists reports whether a non-empty regular file called name is already
// present. Empty files do not count; they are downloaded again.
func (m *Manager) Exists(name string) bool {
	info, err := os.Stat(m.Path(name))
	ok := err == nil && info.Mode().IsRegular() && info.Size() > 0

	m.mu.Lock()
	if ok {
		m.present[filepath.Base(name)] = true
	} else {
		delete(m.present, filepath.Base(name))
	}
	m.mu.Unlock()

	return ok
}

// SavePhoto writes data to name atomically and returns the byte count
func (m *Manager) SavePhoto(data []byte, name string) (int64, error) {
	return m.Save(bytes.NewReader(data), name)
}

// Save copies r into name through a temporary file and a rename, so a
// partial download never shows up under the final name
func (m *Manager) Save(r io.Reader, name string) (int64, error) {
	filename := m.Path(name)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to save photo data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.present[filepath.Base(name)] = written > 0
	m.mu.Unlock()

	return written, nil
}

// Remove deletes name from the output directory; a missing file is not an error
func (m *Manager) Remove(name string) error {
	if err := os.Remove(m.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	m.mu.Lock()
	delete(m.present, filepath.Base(name))
	m.mu.Unlock()
	return nil
}

// ParseDateGroup interprets a date group label in the local time zone
func ParseDateGroup(dateGroup string) (time.Time, error) {
	ts, err := dateparse.ParseLocal(dateGroup)
	if err != nil {
		return time.Time{}, &errs.Error{
			Type:    errs.ErrorTypeTimestamp,
			Op:      "timestamp",
			Target:  dateGroup,
			Message: "unrecognised date",
			Err:     err,
		}
	}
	return ts, nil
}

// SetTimestamp sets both access and modification time of name to the
// moment dateGroup describes
func (m *Manager) SetTimestamp(name, dateGroup string) error {
	ts, err := ParseDateGroup(dateGroup)
	if err != nil {
		return err
	}

	if err := os.Chtimes(m.Path(name), ts, ts); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeTimestamp,
			Op:      "timestamp",
			Target:  name,
			Message: "failed to set file times",
			Err:     err,
		}
	}

	m.logger.DebugWithFields("Timestamp restored", map[string]interface{}{
		"file":       name,
		"date_group": dateGroup,
		"time":       ts.Format(time.RFC3339),
	})
	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetDownloadedCount returns the number of non-empty files known to be present
func (m *Manager) GetDownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, ok := range m.present {
		if ok {
			count++
		}
	}
	return count
}
