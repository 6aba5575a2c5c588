// Package inspect answers "where was this defined and what does its file
// say" for functions and classes, and keeps the process-wide cache of
// source file text.
package inspect

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/chazu/pywalk/pyobj"
)

var (
	// ErrCantGetSourceText means the object has no retrievable source.
	ErrCantGetSourceText = errors.New("can't get source text")
	// ErrInspection means the object is not something source can be
	// looked up for.
	ErrInspection = errors.New("inspection failed")
)

// Source locates a definition in its file.
type Source struct {
	Filename string
	Text     []byte
	Line     int
}

// ---------------------------------------------------------------------------
// Files: process-wide file text cache keyed by file name
// ---------------------------------------------------------------------------

// Files caches source file text. Each file name maps to one *pyobj.File
// for the life of the cache; entries are never evicted.
type Files struct {
	mu      sync.RWMutex
	entries map[string]*pyobj.File
	// ReadFile loads text for names that were never registered. Nil
	// disables disk access.
	ReadFile func(name string) ([]byte, error)
}

// NewFiles returns an empty cache that falls back to the filesystem.
func NewFiles() *Files {
	return &Files{entries: make(map[string]*pyobj.File), ReadFile: os.ReadFile}
}

// Default is the process-wide cache used by the package-level functions.
var Default = NewFiles()

// Register records text for name. A name that is already cached keeps its
// first text so that File stays stable.
func (fs *Files) Register(name, text string) *pyobj.File {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.entries[name]; ok {
		return f
	}
	f := &pyobj.File{Name: name, Text: text}
	fs.entries[name] = f
	return f
}

// File returns the cached file object for name, loading it on first use.
func (fs *Files) File(name string) (*pyobj.File, error) {
	fs.mu.RLock()
	f, ok := fs.entries[name]
	fs.mu.RUnlock()
	if ok {
		return f, nil
	}
	if fs.ReadFile == nil {
		return nil, fmt.Errorf("%w: %s is not loaded", ErrCantGetSourceText, name)
	}
	data, err := fs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCantGetSourceText, err)
	}
	return fs.Register(name, string(data)), nil
}

// FileText returns the text of a source file, loading it on first use.
func (fs *Files) FileText(name string) ([]byte, error) {
	f, err := fs.File(name)
	if err != nil {
		return nil, err
	}
	return []byte(f.Text), nil
}

// SourceOf returns the file and starting line of a function or class.
func (fs *Files) SourceOf(v pyobj.Value) (Source, error) {
	var code *pyobj.Code
	switch x := v.(type) {
	case *pyobj.Function:
		code = x.Code
	case *pyobj.Class:
		if x.Builtin {
			return Source{}, fmt.Errorf("%w: %s is a builtin class", ErrCantGetSourceText, x.Name)
		}
		code = x.Code
	default:
		return Source{}, fmt.Errorf("%w: %s is not a function or class", ErrInspection, pyobj.Describe(v))
	}
	if code == nil || code.Filename == "" {
		return Source{}, fmt.Errorf("%w: %s has no source location", ErrCantGetSourceText, pyobj.Describe(v))
	}
	f, err := fs.File(code.Filename)
	if err != nil {
		return Source{}, err
	}
	return Source{Filename: f.Name, Text: []byte(f.Text), Line: code.FirstLine}, nil
}

// Register records text for name in the default cache.
func Register(name, text string) *pyobj.File { return Default.Register(name, text) }

// File returns the file object for name from the default cache.
func File(name string) (*pyobj.File, error) { return Default.File(name) }

// SourceOf locates v using the default cache.
func SourceOf(v pyobj.Value) (Source, error) { return Default.SourceOf(v) }

// FileText returns file text from the default cache.
func FileText(name string) ([]byte, error) { return Default.FileText(name) }
