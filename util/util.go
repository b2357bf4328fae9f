package util

import (
	"fmt"
	"log/slog"
	"strings"
)

// Debug is the highest DPrintf level that is emitted. Level 0 messages are
// always emitted.
var Debug uint64 = 0

func SetDebug(level uint64) {
	Debug = level
}

// DPrintf logs a trace message at slog debug level if level <= Debug.
func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		slog.Debug(strings.TrimSuffix(fmt.Sprintf(format, a...), "\n"),
			"level", level)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}
