package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// SetupWarnings routes errors.Warn through a zerolog logger writing to w.
// Warnings implementing zerolog.LogObjectMarshaler (ConvergenceWarning,
// FoldWarning) are embedded as structured fields.
// It returns a function restoring the previous behaviour.
func SetupWarnings(w io.Writer) func() {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isTerminal(w)}).
		With().Timestamp().Str("component", "warnings").Logger()

	errors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return func() { errors.SetZerologWarnFunc(nil) }
}
