package logging

import "github.com/rs/zerolog"

// KV adapts a zerolog.Logger to the key-value Info/Warn/Error shape
// used by the reaper and its collaborators.
type KV struct {
	zl zerolog.Logger
}

func NewKV(zl zerolog.Logger) *KV {
	return &KV{zl: zl}
}

func (l *KV) Info(msg string, args ...interface{}) {
	l.emit(l.zl.Info(), msg, args)
}

func (l *KV) Warn(msg string, args ...interface{}) {
	l.emit(l.zl.Warn(), msg, args)
}

func (l *KV) Error(msg string, args ...interface{}) {
	l.emit(l.zl.Error(), msg, args)
}

func (l *KV) emit(ev *zerolog.Event, msg string, args []interface{}) {
	if len(args) > 0 {
		ev = ev.Fields(args)
	}
	ev.Msg(msg)
}
