package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// FileStore appends records as JSON lines to a local file. Suitable for
// development and single-instance deployments.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore writing to path. The file is created on
// the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save assigns a fresh id to rec and appends it to the file.
func (fs *FileStore) Save(_ context.Context, rec Record) (string, error) {
	rec.ID = uuid.NewString()
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("feedback: marshal: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("feedback: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("feedback: write: %w", err)
	}
	return rec.ID, nil
}
