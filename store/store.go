package store

import (
	"os"

	"github.com/pkg/errors"

	"cafe/common"
	"cafe/ranges"
)

const DefaultChunkSize = common.DefaultChunkSize

// ErrNotRegular is returned for paths that are neither files nor directories.
var ErrNotRegular = errors.New("not a regular file")

// Store opens resources under the served directory.
type Store struct {
	chunkSize int
}

func NewStore(conf *common.CafeConfig) *Store {
	return &Store{chunkSize: conf.ChunkBytes}
}

func (s *Store) ChunkSize() int {
	if s.chunkSize <= 0 {
		return DefaultChunkSize
	}
	return s.chunkSize
}

// Open acquires a handle used to stat and type-check a resource.
func (s *Store) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return f, nil
}

// StatHandle describes an open handle.
func (s *Store) StatHandle(f *os.File) (*Item, os.FileInfo, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to stat %s", f.Name())
	}
	return NewItem(f.Name(), info), info, nil
}

// Stat describes a resource by path.
func (s *Store) Stat(path string) (*Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Wrapf(ErrNotRegular, "%s", path)
	}
	return NewItem(path, info), nil
}

// OpenRange opens a chunked reader over one range of the resource.
func (s *Store) OpenRange(path string, r ranges.ByteRange) (*RangeReader, error) {
	return OpenRange(path, r.Start, r.Length, s.ChunkSize())
}
