// Package zap adapts go.uber.org/zap to the excache.Logger interface
// through zap's sugared key/value API.
package zap

import (
	"go.uber.org/zap"

	"github.com/ternvale/excache"
)

type Logger struct{ S *zap.SugaredLogger }

var _ excache.Logger = Logger{}

// New wraps a structured zap logger. The caller keeps ownership of the
// underlying logger; flushing via Sync stays with the caller.
func New(l *zap.Logger) Logger {
	// The adapter adds one frame between the call site and zap.
	return Logger{S: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z Logger) Debug(msg string, f excache.Fields) { z.S.Debugw(msg, kv(f)...) }
func (z Logger) Info(msg string, f excache.Fields)  { z.S.Infow(msg, kv(f)...) }
func (z Logger) Warn(msg string, f excache.Fields)  { z.S.Warnw(msg, kv(f)...) }
func (z Logger) Error(msg string, f excache.Fields) { z.S.Errorw(msg, kv(f)...) }

// kv flattens a field map into sugared key/value pairs.
func kv(f excache.Fields) []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, 2*len(f))
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
