// Package filesystem holds the afero backend that every file access goes
// through, so tests can run against an in-memory filesystem.
package filesystem

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
)

var (
	mu      sync.RWMutex
	backend = afero.Afero{Fs: afero.NewOsFs()}
)

// API returns the active backend.
func API() afero.Afero {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// ReadOnly returns a view of the active backend that rejects writes.
// Media files are opened through it.
func ReadOnly() afero.Afero {
	return afero.Afero{Fs: afero.NewReadOnlyFs(API().Fs)}
}

// Use replaces the active backend.
func Use(fs afero.Fs) {
	mu.Lock()
	defer mu.Unlock()
	backend = afero.Afero{Fs: fs}
}

func SetOsFs() {
	Use(afero.NewOsFs())
}

func SetMemMapFs() {
	Use(afero.NewMemMapFs())
}

// GacheFs lets gache caches persist through the active backend.
type GacheFs struct{}

func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
