/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Storage is a flat string key/value store. Identity and session state are
// kept behind it so tests can swap in an in-memory copy.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type fsStorage struct {
	mu sync.Mutex
	fs afero.Fs
}

func newFsStorage(fsys afero.Fs) *fsStorage {
	return &fsStorage{fs: fsys}
}

// NewDurableStorage keeps one file per key under dir/origin. Each API origin
// gets its own directory, like per-origin browser storage.
func NewDurableStorage(dir string, origin *url.URL) (Storage, error) {
	root := filepath.Join(dir, originDir(origin))

	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}

	return newFsStorage(afero.NewBasePathFs(osfs, root)), nil
}

// NewVolatileStorage lives and dies with the process.
func NewVolatileStorage() Storage {
	return newFsStorage(afero.NewMemMapFs())
}

func originDir(origin *url.URL) string {
	if origin == nil || origin.Host == "" {
		return "default"
	}
	return strings.NewReplacer(":", "_", "/", "_").Replace(origin.Scheme + "_" + origin.Host)
}

func (s *fsStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, err
	}

	return string(data), true, nil
}

// Set writes to a temp file and renames it into place, so a crash never
// leaves half a value behind.
func (s *fsStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := key + ".tmp-" + randomHex(4)
	if err := afero.WriteFile(s.fs, name, []byte(value), 0o600); err != nil {
		_ = s.fs.Remove(name)
		return err
	}

	return s.fs.Rename(name, key)
}

func (s *fsStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "0"
	}
	return hex.EncodeToString(buf)
}
