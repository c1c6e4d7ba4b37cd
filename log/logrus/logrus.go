// Package logrus adapts sirupsen/logrus to the excache.Logger
// interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/ternvale/excache"
)

type Logger struct{ L *logrus.Logger }

var _ excache.Logger = Logger{}

func (l Logger) Debug(msg string, f excache.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l Logger) Info(msg string, f excache.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l Logger) Warn(msg string, f excache.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l Logger) Error(msg string, f excache.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l Logger) log(level logrus.Level, msg string, f excache.Fields) {
	if !l.L.IsLevelEnabled(level) {
		return
	}
	if len(f) == 0 {
		l.L.Log(level, msg)
		return
	}
	l.L.WithFields(logrus.Fields(f)).Log(level, msg)
}
