package http

import (
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"cafe/common"
	"cafe/ranges"
	"cafe/store"
)

var errInvalidRange = errors.New("invalid range")

// Menu decides which relative paths may be served and where they live.
type Menu interface {
	IsServable(relativePath string) bool
	Resolve(relativePath string) string
}

// Dispatcher maps a request path to a file response. Every failure is turned
// into a response here, chosen by the phase that was active when it failed.
type Dispatcher struct {
	conf     *common.CafeConfig
	policy   Menu
	store    *store.Store
	composer *Composer
	log      zerolog.Logger
}

func NewDispatcher(conf *common.CafeConfig, policy Menu, s *store.Store, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		conf:     conf,
		policy:   policy,
		store:    s,
		composer: NewComposer(s),
		log:      log,
	}
}

// Dispatch serves the file or directory index named by the request path.
func (d *Dispatcher) Dispatch(ctx *fasthttp.RequestCtx, trans *Transaction) {
	relativePath := strings.TrimPrefix(string(ctx.Path()), "/")
	d.serveFile(ctx, trans, relativePath, true)
}

func (d *Dispatcher) serveFile(ctx *fasthttp.RequestCtx, trans *Transaction, relativePath string, directoryFallback bool) {
	d.enter(trans, StatusResolvingPath)
	if relativePath != "" && !d.policy.IsServable(relativePath) {
		d.notOnMenu(ctx, trans)
		return
	}
	fullPath := d.policy.Resolve(relativePath)

	d.enter(trans, StatusAcquiringHandle)
	handle, err := d.store.Open(fullPath)
	if err != nil {
		d.fail(ctx, trans, err, -1)
		return
	}
	defer handle.Close()
	// checked again now that a handle is held
	if relativePath != "" && !d.policy.IsServable(relativePath) {
		d.notOnMenu(ctx, trans)
		return
	}

	d.enter(trans, StatusStatingHandle)
	item, info, err := d.store.StatHandle(handle)
	if err != nil {
		d.fail(ctx, trans, err, -1)
		return
	}

	d.enter(trans, StatusValidatingType)
	if info.IsDir() && directoryFallback {
		handle.Close()
		d.serveFile(ctx, trans, path.Join(relativePath, IndexFile), false)
		return
	}
	if !info.Mode().IsRegular() {
		d.fail(ctx, trans, errors.Wrapf(store.ErrNotRegular, "%s", fullPath), -1)
		return
	}

	set := ranges.Whole(item.Size)
	header := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRange)))
	partial := header != ""
	if partial {
		d.enter(trans, StatusValidatingRange)
		var ok bool
		if set, ok = ranges.Parse(header, item.Size); !ok {
			d.fail(ctx, trans, errors.Wrapf(errInvalidRange, "%q", header), item.Size)
			return
		}
	}

	d.enter(trans, StatusServing)
	if len(set) > 1 {
		err = d.composer.Multipart(ctx, item, set)
	} else {
		err = d.composer.Single(ctx, item, set[0], partial)
	}
	if err != nil {
		d.fail(ctx, trans, err, item.Size)
		return
	}

	d.enter(trans, StatusServed)
	d.log.Debug().Str("path", relativePath).Int("ranges", len(set)).Int64("size", item.Size).Msg("serving")
}

func (d *Dispatcher) enter(trans *Transaction, s InternalStatus) {
	trans.Enter(s)
	d.log.Trace().Str("path", trans.Path).Msg(s.Progress())
}

func (d *Dispatcher) notOnMenu(ctx *fasthttp.RequestCtx, trans *Transaction) {
	if d.conf.DebugResponseHeaders {
		ctx.Response.Header.Set(HeaderFailureReason, trans.Status.String())
	}
	d.respond(ctx, fasthttp.StatusNotFound, bodyNotOnMenu)
}

// fail picks the response for err from the active phase. size is the
// resource size when known.
func (d *Dispatcher) fail(ctx *fasthttp.RequestCtx, trans *Transaction, err error, size int64) {
	phase := trans.Status
	reason := phase.String()

	status := fasthttp.StatusInternalServerError
	body := bodyInDisarray

	switch phase {
	case StatusResolvingPath:
		status, body = fasthttp.StatusNotFound, bodyNotOnMenu
	case StatusAcquiringHandle, StatusStatingHandle, StatusValidatingType:
		if errors.Is(err, fs.ErrNotExist) {
			status, body = fasthttp.StatusNotFound, bodyNotOnMenu
		}
	case StatusValidatingRange:
		status, body = fasthttp.StatusRequestedRangeNotSatisfiable, bodyBadRange
		ctx.Response.Header.Set(HeaderContentRange, ranges.Unsatisfiable(size))
	case StatusServing:
		if errors.Is(err, ErrResourceGone) {
			status, body = fasthttp.StatusNotFound, bodyNotOnMenu
			reason = StatusStatingHandle.Failure()
		}
	}

	if d.conf.DebugResponseHeaders {
		ctx.Response.Header.Set(HeaderFailureReason, reason)
	}
	d.respond(ctx, status, body)

	d.log.Warn().
		Err(err).
		Str("path", trans.Path).
		Str("phase", phase.String()).
		Int("status", status).
		Msg(phase.Failure())
}

func (d *Dispatcher) respond(ctx *fasthttp.RequestCtx, status int, body string) {
	ctx.Response.Header.Del(HeaderAcceptRanges)
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(body)
}
