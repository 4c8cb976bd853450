package http

import (
	"context"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var ErrCouldNotOpen = errors.New("I'm afraid we couldn't open the cafe today")

type ListenOptions struct {
	Host string
	// RetryCount is the number of extra attempts after EADDRINUSE; -1 retries forever.
	RetryCount    int
	RetryInterval time.Duration
	// Incremental moves to the next port after each failed attempt.
	Incremental bool
}

type ListenResult struct {
	Port int
	Addr string
}

// Listen binds port and starts serving. Only EADDRINUSE is retried; any other
// error is returned at once.
func (svr *CafeServer) Listen(ctx context.Context, port int, opts ListenOptions) (*ListenResult, error) {
	if svr.State() == StateListening {
		return nil, ErrAlreadyListening
	}

	retries := opts.RetryCount
	for port < 65536 {
		addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			result, err := svr.Serve(ln)
			if err != nil {
				ln.Close()
			}
			return result, err
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrapf(err, "failed to listen on %s", addr)
		}

		if retries == 0 {
			break
		}
		if retries > 0 {
			retries--
		}
		svr.logger.Warn().Str("addr", addr).Dur("retry_in", opts.RetryInterval).Msg("address in use")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryInterval):
		}
		if opts.Incremental {
			port++
		}
	}

	return nil, errors.Wrapf(ErrCouldNotOpen, "last port tried %d", port)
}
