package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Provider opens dataset files by name.
type Provider interface {
	// Open returns a stream over the named file. The caller closes it.
	Open(name string) (io.ReadCloser, error)

	// Stat returns the file's size; a missing file yields ErrSourceNotFound.
	Stat(name string) (int64, error)

	// Location describes where name is read from, for messages.
	Location(name string) string
}

// DirProvider reads files from a directory.
type DirProvider struct {
	dir string
}

// NewDirProvider returns a Provider rooted at dir.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{dir: dir}
}

func (p *DirProvider) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(p.Location(name))
	if err != nil {
		return nil, p.wrap(name, err)
	}
	return f, nil
}

func (p *DirProvider) Stat(name string) (int64, error) {
	info, err := os.Stat(p.Location(name))
	if err != nil {
		return 0, p.wrap(name, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory: %w", p.Location(name), olist.ErrSourceNotFound)
	}
	return info.Size(), nil
}

func (p *DirProvider) Location(name string) string {
	return filepath.Join(p.dir, name)
}

func (p *DirProvider) wrap(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", p.Location(name), olist.ErrSourceNotFound)
	}
	return fmt.Errorf("failed to open %s: %w", p.Location(name), err)
}

// MemoryProvider serves files held in memory.
type MemoryProvider struct {
	files map[string][]byte
}

// NewMemoryProvider copies files into a new MemoryProvider.
func NewMemoryProvider(files map[string]string) *MemoryProvider {
	m := &MemoryProvider{files: make(map[string][]byte, len(files))}
	for name, content := range files {
		m.files[name] = []byte(content)
	}
	return m
}

func (m *MemoryProvider) Open(name string) (io.ReadCloser, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", m.Location(name), olist.ErrSourceNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryProvider) Stat(name string) (int64, error) {
	data, ok := m.files[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", m.Location(name), olist.ErrSourceNotFound)
	}
	return int64(len(data)), nil
}

func (m *MemoryProvider) Location(name string) string {
	return "memory:" + name
}

// CheckAll stats every name and reports all missing files in one error.
func CheckAll(p Provider, names []string) error {
	var missing []string
	for _, name := range names {
		if _, err := p.Stat(name); err != nil {
			if !errors.Is(err, olist.ErrSourceNotFound) {
				return err
			}
			missing = append(missing, p.Location(name))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing source files: %s: %w", strings.Join(missing, ", "), olist.ErrSourceNotFound)
}
