package common

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// InitLog builds the process logger. Without a log path it writes to stderr,
// pretty-printed when stderr is a terminal.
func InitLog(conf LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil || conf.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	switch {
	case conf.Path != "":
		if err := os.MkdirAll(filepath.Dir(conf.Path), os.ModePerm); err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "failed to create log dir for %s", conf.Path)
		}
		f, err := os.OpenFile(conf.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "failed to open log file %s", conf.Path)
		}
		out = f
	case isatty.IsTerminal(os.Stderr.Fd()):
		out = zerolog.ConsoleWriter{Out: colorable.NewColorableStderr(), TimeFormat: time.Kitchen}
	default:
		out = os.Stderr
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

type HourlyLogger struct {
	dir      string
	logger   zerolog.Logger
	file     *os.File
	filename string
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
	lock     sync.RWMutex
}

// LogData is one access log record.
type LogData struct {
	Path     string
	Status   int
	Phase    string
	Range    string
	Bytes    int64
	Duration time.Duration
}

func newLogger(dir string) (*HourlyLogger, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create access log dir %s", dir)
	}

	l := &HourlyLogger{dir: dir, done: make(chan struct{})}
	if err := l.update(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *HourlyLogger) WriteLog(msg *LogData) {
	if l == nil {
		return
	}

	l.lock.RLock()
	defer l.lock.RUnlock()
	l.logger.Info().
		Str("path", msg.Path).
		Int("status", msg.Status).
		Str("phase", msg.Phase).
		Str("range", msg.Range).
		Int64("bytes", msg.Bytes).
		Dur("duration", msg.Duration).
		Msg("")
}

// Filename is the file currently written to.
func (l *HourlyLogger) Filename() string {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.filename
}

func (l *HourlyLogger) update() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	filename := filepath.Join(l.dir, time.Now().Format("2006-01-02-15.log"))
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open access log %s", filename)
	}

	if l.file != nil {
		l.file.Close()
	}
	l.file, l.filename = file, filename
	l.logger = zerolog.New(l.file).With().Timestamp().Logger()
	return nil
}

// Close stops rotation and closes the current file.
func (l *HourlyLogger) Close() error {
	if l == nil {
		return nil
	}

	l.once.Do(func() {
		close(l.done)
		if l.ticker != nil {
			l.ticker.Stop()
		}
	})

	l.lock.Lock()
	defer l.lock.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.logger = zerolog.Nop()
	return err
}

// NewHourlyLogger opens an access log under dir that switches to a new file
// at the top of every hour.
func NewHourlyLogger(dir string, log zerolog.Logger) (*HourlyLogger, error) {
	l, err := newLogger(dir)
	if err != nil {
		return nil, err
	}

	next := time.Now().Add(time.Hour).Truncate(time.Hour)
	l.ticker = time.NewTicker(time.Until(next))
	go func() {
		for {
			select {
			case <-l.done:
				return
			case <-l.ticker.C:
				if err := l.update(); err != nil {
					log.Error().Err(err).Msg("access log rotation failed")
				}
				next := time.Now().Add(time.Hour).Truncate(time.Hour)
				l.ticker.Reset(time.Until(next))
			}
		}
	}()

	return l, nil
}
