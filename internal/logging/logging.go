// Package logging adapts zerolog to the runtime.Logger interface so the
// relay and host packages log the same way inside and outside Nakama.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/rs/zerolog"
)

// Zerolog implements runtime.Logger on top of a zerolog.Logger.
type Zerolog struct {
	log    zerolog.Logger
	fields map[string]interface{}
}

// New wraps l.
func New(l zerolog.Logger) *Zerolog {
	return &Zerolog{log: l, fields: map[string]interface{}{}}
}

// Console returns a human readable logger writing to w at the named level.
func Console(w io.Writer, level string) *Zerolog {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger()
	return New(l)
}

// Nop discards everything.
func Nop() *Zerolog {
	return New(zerolog.Nop())
}

func (z *Zerolog) Debug(format string, v ...interface{}) { z.log.Debug().Msgf(format, v...) }
func (z *Zerolog) Info(format string, v ...interface{})  { z.log.Info().Msgf(format, v...) }
func (z *Zerolog) Warn(format string, v ...interface{})  { z.log.Warn().Msgf(format, v...) }
func (z *Zerolog) Error(format string, v ...interface{}) { z.log.Error().Msgf(format, v...) }

func (z *Zerolog) WithField(key string, v interface{}) runtime.Logger {
	return z.WithFields(map[string]interface{}{key: v})
}

func (z *Zerolog) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(z.fields)+len(fields))
	for k, v := range z.fields {
		merged[k] = v
	}
	ctx := z.log.With()
	for k, v := range fields {
		merged[k] = v
		ctx = ctx.Interface(k, v)
	}
	return &Zerolog{log: ctx.Logger(), fields: merged}
}

func (z *Zerolog) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(z.fields))
	for k, v := range z.fields {
		out[k] = v
	}
	return out
}

// Zero exposes the wrapped zerolog logger.
func (z *Zerolog) Zero() zerolog.Logger { return z.log }

var _ runtime.Logger = (*Zerolog)(nil)
