package http

import (
	"io"

	"cafe/ranges"
	"cafe/store"
)

// multipartStream produces a multipart/byteranges body. Each part's reader
// is opened only after the previous part and its trailer were consumed, so at
// most one file handle and one chunk are held at a time.
type multipartStream struct {
	store    *store.Store
	path     string
	mime     string
	boundary string
	size     int64
	set      ranges.Set

	next    int
	cur     *store.RangeReader
	pending []byte
	closed  bool
}

func newMultipartStream(s *store.Store, item *store.Item, boundary string, set ranges.Set) *multipartStream {
	return &multipartStream{
		store:    s,
		path:     item.Path,
		mime:     item.Mime,
		boundary: boundary,
		size:     item.Size,
		set:      set,
	}
}

func (m *multipartStream) partHeader(r ranges.ByteRange) []byte {
	return []byte("--" + m.boundary + "\r\n" +
		"Content-Type: " + m.mime + "\r\n" +
		HeaderContentRange + ": " + r.ContentRange(m.size) + "\r\n\r\n")
}

func (m *multipartStream) closing() []byte {
	return []byte("--" + m.boundary + "--\r\n")
}

// Len is the exact number of bytes the stream produces.
func (m *multipartStream) Len() int64 {
	var n int64
	for _, r := range m.set {
		n += int64(len(m.partHeader(r))) + r.Length + int64(len(crlf))
	}
	return n + int64(len(m.closing()))
}

func (m *multipartStream) Read(p []byte) (int, error) {
	for len(m.pending) == 0 {
		if err := m.advance(); err != nil {
			return 0, err
		}
	}

	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *multipartStream) advance() error {
	if m.cur != nil {
		chunk, err := m.cur.Next()
		if err == nil {
			m.pending = chunk
			return nil
		}

		m.cur.Close()
		m.cur = nil
		if err != io.EOF {
			return err
		}
		m.pending = crlf
		return nil
	}

	if m.next < len(m.set) {
		r := m.set[m.next]
		m.next++

		reader, err := m.store.OpenRange(m.path, r)
		if err != nil {
			return err
		}
		m.cur = reader
		m.pending = m.partHeader(r)
		return nil
	}

	if !m.closed {
		m.closed = true
		m.pending = m.closing()
		return nil
	}
	return io.EOF
}

// Close releases the open part reader, if any. Called by fasthttp once the
// body was written or the client went away.
func (m *multipartStream) Close() error {
	m.closed = true
	m.next = len(m.set)
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil
	return err
}
