package http

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"cafe/ranges"
	"cafe/store"
)

// ErrResourceGone is returned when a resource disappears between the
// dispatcher's checks and the start of a multipart body.
var ErrResourceGone = errors.New("resource stat failed")

// Composer writes range responses. Bodies are streamed: fasthttp pulls them
// as the connection accepts data and closes them when done or cancelled.
type Composer struct {
	store    *store.Store
	boundary func() string
}

func NewComposer(s *store.Store) *Composer {
	return &Composer{store: s, boundary: uuid.NewString}
}

// Single serves one range. partial selects 206 with Content-Range over 200.
func (c *Composer) Single(ctx *fasthttp.RequestCtx, item *store.Item, r ranges.ByteRange, partial bool) error {
	reader, err := c.store.OpenRange(item.Path, r)
	if err != nil {
		return err
	}

	if partial {
		ctx.SetStatusCode(fasthttp.StatusPartialContent)
		ctx.Response.Header.Set(HeaderContentRange, r.ContentRange(item.Size))
	} else {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}
	ctx.SetContentType(item.Mime)
	ctx.Response.Header.Set(HeaderAcceptRanges, "bytes")
	ctx.SetBodyStream(reader, int(r.Length))
	return nil
}

// Multipart serves two or more ranges as multipart/byteranges. The resource
// is stated again for the part headers; a failure there, or a size other than
// the one the ranges were validated against, yields ErrResourceGone before
// anything is committed.
func (c *Composer) Multipart(ctx *fasthttp.RequestCtx, item *store.Item, set ranges.Set) error {
	current, err := c.store.Stat(item.Path)
	if err != nil {
		return errors.Wrapf(ErrResourceGone, "%v", err)
	}
	if current.Size != item.Size {
		return errors.Wrapf(ErrResourceGone, "%s changed size from %d to %d", item.Path, item.Size, current.Size)
	}

	boundary := c.boundary()
	stream := newMultipartStream(c.store, current, boundary, set)

	ctx.SetStatusCode(fasthttp.StatusPartialContent)
	ctx.SetContentType(MultipartContentType + boundary)
	ctx.Response.Header.Set(HeaderAcceptRanges, "bytes")
	ctx.SetBodyStream(stream, int(stream.Len()))
	return nil
}
