package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLog appends the formatted line of every record to a text file per
// kind under dir. Files are opened lazily and truncated on first use so a
// run starts with fresh output.
type FileLog struct {
	mu    sync.Mutex
	dir   string
	names map[string]string
	files map[string]*os.File
}

// NewFileLog writes kind K to <dir>/<names[K]>, or <dir>/<K>.txt when K has
// no entry in names.
func NewFileLog(dir string, names map[string]string) (*FileLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileLog{dir: dir, names: names, files: make(map[string]*os.File)}, nil
}

// Path returns the file that records of kind are written to.
func (l *FileLog) Path(kind string) string {
	name, ok := l.names[kind]
	if !ok {
		name = kind + ".txt"
	}
	return filepath.Join(l.dir, name)
}

func (l *FileLog) Append(rec Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.files[rec.Kind]
	if !ok {
		var err error
		f, err = os.OpenFile(l.Path(rec.Kind), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return rec, fmt.Errorf("open %s log: %w", rec.Kind, err)
		}
		l.files[rec.Kind] = f
	}
	if _, err := fmt.Fprintln(f, rec.Line); err != nil {
		return rec, fmt.Errorf("write %s log: %w", rec.Kind, err)
	}
	return rec, nil
}

func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	for kind, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(l.files, kind)
	}
	return first
}

// NopLog discards records.
type NopLog struct{}

func (NopLog) Append(rec Record) (Record, error) { return rec, nil }

var (
	_ Appender = (*FileLog)(nil)
	_ Appender = NopLog{}
)
