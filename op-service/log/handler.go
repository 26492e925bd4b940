package log

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"time"

	elog "github.com/ethereum/go-ethereum/log"
)

const (
	timeFormatMs = "2006-01-02T15:04:05.000-0700"
	// allLevels lets every record through, filtering is left to the DynamicLogHandler.
	allLevels slog.Level = math.MinInt
)

// JSONMsHandler writes one JSON object per record, with a "t" timestamp and a geth-style "lvl".
func JSONMsHandler(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(wr, msHandlerOptions(level, false))
}

// LogfmtMsHandler writes logfmt records with millisecond timestamps.
func LogfmtMsHandler(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(wr, msHandlerOptions(level, true))
}

func msHandlerOptions(level slog.Level, logfmt bool) *slog.HandlerOptions {
	formatTime := func(key string, t time.Time) slog.Attr {
		if logfmt {
			return slog.String(key, t.Format(timeFormatMs))
		}
		return slog.Time(key, t)
	}
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				if attr.Value.Kind() == slog.KindTime {
					return formatTime("t", attr.Value.Time())
				}
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok {
					return slog.String("lvl", elog.LevelString(l))
				}
			}
			switch v := attr.Value.Any().(type) {
			case time.Time:
				return formatTime(attr.Key, v)
			case fmt.Stringer:
				// hashes, addresses, big ints and cursor ids render as their string form
				return slog.String(attr.Key, stringOrNil(v))
			}
			return attr
		},
	}
}

func stringOrNil(v fmt.Stringer) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "<nil>"
	}
	return v.String()
}
