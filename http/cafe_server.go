package http

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"cafe/common"
	"cafe/menu"
	"cafe/store"
)

var (
	ErrNotListening     = errors.New("the cafe is not open for business... yet")
	ErrAlreadyListening = errors.New("the cafe is already open")
)

type State int

const (
	StateClosed State = iota
	StateListening
)

func (s State) String() string {
	if s == StateListening {
		return "listening"
	}
	return "closed"
}

// Options carries what the server needs besides the config.
type Options struct {
	Version string
	Logger  zerolog.Logger
	Access  *common.HourlyLogger
}

type CafeServer struct {
	name       string
	version    string
	conf       *common.CafeConfig
	dispatcher *Dispatcher
	logger     zerolog.Logger
	access     *common.HourlyLogger

	lock     sync.Mutex
	state    State
	server   *fasthttp.Server
	listener net.Listener
	port     int
	done     chan struct{}
	serveErr error
}

// NewCafeServer builds a server for a loaded config. The config must not be
// modified afterwards.
func NewCafeServer(conf *common.Config, opts Options) (*CafeServer, error) {
	policy, err := menu.NewPolicy(&conf.Cafe)
	if err != nil {
		return nil, err
	}

	s := store.NewStore(&conf.Cafe)
	return &CafeServer{
		name:       conf.Common.Name,
		version:    opts.Version,
		conf:       &conf.Cafe,
		dispatcher: NewDispatcher(&conf.Cafe, policy, s, opts.Logger),
		logger:     opts.Logger,
		access:     opts.Access,
		state:      StateClosed,
	}, nil
}

func (svr *CafeServer) cafeHandler(ctx *fasthttp.RequestCtx) {
	trans := NewTrans(ctx)
	defer func() {
		if r := recover(); r != nil {
			svr.logger.Error().Str("trans", trans.String()).Msg(fmt.Sprintf("handler panic: %v", r))
			ctx.Response.Reset()
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString(bodyInDisarray)
		}
		svr.setCommonHeaders(ctx)
		svr.access.WriteLog(trans.Finish(ctx))
	}()

	path := string(ctx.Path())
	switch {
	case !ctx.IsGet() && !ctx.IsHead():
		svr.dispatcher.notOnMenu(ctx, trans)
	case path == StaffRoute:
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(bodyStaff)
	default:
		if target, ok := svr.conf.Alias[path]; ok {
			ctx.Redirect(target, fasthttp.StatusFound)
			return
		}
		svr.dispatcher.Dispatch(ctx, trans)
	}
}

func (svr *CafeServer) setCommonHeaders(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set(HeaderServedBy, svr.name)
	if svr.conf.BroadcastVersion {
		ctx.Response.Header.Set(HeaderCafeVersion, svr.version)
	}
}

func (svr *CafeServer) newServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:         svr.cafeHandler,
		Name:            svr.name,
		Logger:          fasthttpLogger{svr.logger},
		CloseOnShutdown: true,
	}
}

// Serve starts serving on ln in the background.
func (svr *CafeServer) Serve(ln net.Listener) (*ListenResult, error) {
	svr.lock.Lock()
	defer svr.lock.Unlock()

	if svr.state == StateListening {
		return nil, ErrAlreadyListening
	}

	port := 0
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	server := svr.newServer()
	done := make(chan struct{})
	svr.server, svr.listener, svr.port = server, ln, port
	svr.done, svr.serveErr = done, nil
	svr.state = StateListening

	go func() {
		err := server.Serve(ln)
		svr.lock.Lock()
		svr.serveErr = err
		svr.state = StateClosed
		svr.lock.Unlock()
		close(done)
	}()

	svr.logger.Info().Str("addr", ln.Addr().String()).Msg("a café just opened for business")
	return &ListenResult{Port: port, Addr: ln.Addr().String()}, nil
}

// Stop closes the listener, waits for in-flight requests and returns the
// error Serve ended with, if any.
func (svr *CafeServer) Stop() error {
	svr.lock.Lock()
	if svr.state != StateListening {
		svr.lock.Unlock()
		return ErrNotListening
	}
	server, done := svr.server, svr.done
	svr.lock.Unlock()

	svr.logger.Warn().Msg("cafe closing ...")
	if err := server.Shutdown(); err != nil {
		return errors.Wrap(err, "failed to shut down")
	}
	<-done

	svr.lock.Lock()
	defer svr.lock.Unlock()
	svr.port = 0
	return svr.serveErr
}

// Done is closed when the current Serve loop returns.
func (svr *CafeServer) Done() <-chan struct{} {
	svr.lock.Lock()
	defer svr.lock.Unlock()
	if svr.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return svr.done
}

func (svr *CafeServer) State() State {
	svr.lock.Lock()
	defer svr.lock.Unlock()
	return svr.state
}

func (svr *CafeServer) Port() (int, error) {
	svr.lock.Lock()
	defer svr.lock.Unlock()
	if svr.state != StateListening {
		return 0, ErrNotListening
	}
	return svr.port, nil
}

type fasthttpLogger struct {
	zerolog.Logger
}

func (l fasthttpLogger) Printf(format string, args ...interface{}) {
	l.Warn().Msgf(format, args...)
}
