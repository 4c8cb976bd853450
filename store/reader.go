package store

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrShortRead = errors.New("file ended before the requested range")
	ErrClosed    = errors.New("range reader closed")
)

// RangeReader yields the bytes of one file window in chunks of at most
// chunkSize. It owns its file handle, which is released on exhaustion, on
// the first read error, or on Close, whichever comes first. A RangeReader
// cannot be rewound.
type RangeReader struct {
	file    *os.File
	path    string
	offset  int64
	end     int64
	buf     []byte
	pending []byte
	err     error
}

// OpenRange opens path for reading length bytes from offset.
func OpenRange(path string, offset, length int64, chunkSize int) (*RangeReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	if _, err := file.Stat(); err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if length < int64(chunkSize) {
		chunkSize = int(length)
	}

	return &RangeReader{
		file:   file,
		path:   path,
		offset: offset,
		end:    offset + length,
		buf:    make([]byte, chunkSize),
	}, nil
}

// Next returns the next chunk, valid until the following call. It returns
// io.EOF once the whole window has been produced.
func (r *RangeReader) Next() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.offset >= r.end {
		r.finish(io.EOF)
		return nil, io.EOF
	}

	size := r.end - r.offset
	if size > int64(len(r.buf)) {
		size = int64(len(r.buf))
	}

	n, err := r.file.ReadAt(r.buf[:size], r.offset)
	if n > 0 {
		r.offset += int64(n)
		return r.buf[:n], nil
	}

	if err == nil || err == io.EOF {
		err = errors.Wrapf(ErrShortRead, "%s at offset %d", r.path, r.offset)
	} else {
		err = errors.Wrapf(err, "failed to read %s", r.path)
	}
	r.finish(err)
	return nil, err
}

func (r *RangeReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		chunk, err := r.Next()
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Remaining is the number of window bytes not yet produced by Next.
func (r *RangeReader) Remaining() int64 {
	return r.end - r.offset
}

// Close releases the file handle. It is safe to call more than once.
func (r *RangeReader) Close() error {
	if r.file == nil {
		return nil
	}
	if r.err == nil {
		r.err = ErrClosed
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RangeReader) finish(err error) {
	r.err = err
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
