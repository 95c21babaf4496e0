// internal/storage/file_storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Corphon/EbookGen/internal/utils"
)

// FileStorage keeps each slot in its own file under BaseDir
type FileStorage struct {
	BaseDir string

	fileLocks sync.Map // path -> *sync.RWMutex
}

// NewFileStorage creates the base directory if needed
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{BaseDir: baseDir}, nil
}

func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (fs *FileStorage) path(slot Slot) string {
	return filepath.Join(fs.BaseDir, string(slot)+".dat")
}

// Load reads the slot file
func (fs *FileStorage) Load(_ context.Context, slot Slot) ([]byte, bool, error) {
	if err := checkSlot(slot); err != nil {
		return nil, false, err
	}
	fullPath := fs.path(slot)

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read slot %s: %w", slot, err)
	}
	return content, true, nil
}

// Save writes the slot atomically through a temp file and rename
func (fs *FileStorage) Save(_ context.Context, slot Slot, value []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	fullPath := fs.path(slot)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fs.BaseDir, 0755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	perm := os.FileMode(0644)
	if slot == SlotCredential {
		perm = 0600
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, value, perm); err != nil {
		return fmt.Errorf("write temp file for %s: %w", slot, err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			utils.GetLogger().Warn("failed to clean up temporary file", map[string]interface{}{
				"path":  tempPath,
				"error": removeErr,
			})
		}
		return fmt.Errorf("replace slot %s: %w", slot, err)
	}
	return nil
}

// Remove deletes the slot file; a missing file is fine
func (fs *FileStorage) Remove(_ context.Context, slot Slot) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	fullPath := fs.path(slot)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove slot %s: %w", slot, err)
	}
	return nil
}

// Close is a no-op for the file backend
func (fs *FileStorage) Close() error {
	return nil
}
