package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"peer-arcade/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. Call once from main before
// anything logs.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var sink io.Writer = os.Stdout
	if strings.TrimSpace(cfg.File) != "" {
		fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB)
		if err == nil {
			sink = io.MultiWriter(os.Stdout, fw)
		} else {
			log.Error().Err(err).Str("path", cfg.File).Msg("open log file failed")
		}
	}
	setWriter(sink)

	var output io.Writer = sink
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: sink}
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if n := cfg.SampleEvery; n > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(n)})
	}
	log.Logger = logger
}

// Writer returns the sink the global logger writes to, for components that
// log through log/slog (the HTTP access log).
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

func setWriter(w io.Writer) {
	writerMu.Lock()
	writer = w
	writerMu.Unlock()
}
