package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

type fileStore struct {
	fs     billy.Filesystem
	mutex  sync.Mutex
	closed bool
}

var _ Store = (*fileStore)(nil)

// NewFile returns a Store keeping one file per key on fs. Writes go to a
// sibling temporary file which is then renamed over the target, so readers
// never observe a partially written value.
func NewFile(fs billy.Filesystem) Store {
	return &fileStore{fs: fs}
}

// NewFileDir returns a file Store rooted at dir on the local filesystem.
func NewFileDir(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "storage: create directory %s", dir)
	}
	return NewFile(osfs.New(dir)), nil
}

func filename(key string) string {
	return url.PathEscape(key) + ".json"
}

func (s *fileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	f, err := s.fs.Open(filename(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "storage: open %s", key)
	}
	defer f.Close()
	buf, err := io.ReadAll(f)
	if err != nil {
		return "", false, errors.Wrapf(err, "storage: read %s", key)
	}
	return string(buf), true, nil
}

func (s *fileStore) Set(_ context.Context, key string, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}
	name := filename(key)
	tmp := name + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "storage: create %s", tmp)
	}
	if _, err := f.Write([]byte(value)); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, "storage: write %s", tmp)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, "storage: close %s", tmp)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		return errors.Wrapf(err, "storage: rename %s", tmp)
	}
	return nil
}

func (s *fileStore) Close() error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	return nil
}
