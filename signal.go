package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cafe/common"
	"cafe/http"
)

// HandleSignal stops the server on SIGINT or SIGTERM.
func HandleSignal(svr *http.CafeServer, access *common.HourlyLogger, log zerolog.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case s := <-sigs:
		log.Warn().Str("sig", s.String()).Msg("get signal")
	case <-svr.Done():
	}

	if err := svr.Stop(); err != nil && !errors.Is(err, http.ErrNotListening) {
		log.Error().Err(err).Msg("stop")
	}
	if err := access.Close(); err != nil {
		log.Error().Err(err).Msg("close access log")
	}
}
