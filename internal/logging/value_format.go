package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"recbase/internal/services"
)

// shortHashLen is how many hash characters the console shows.
const shortHashLen = 12

// attrString renders a value that is printed without a key.
func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return formatValue("", v)
}

// formatValue renders v for key=value console output.
func formatValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(logTimestampLayout)
	case slog.KindString:
		s := v.String()
		if key == FieldHash && len(s) > shortHashLen {
			s = s[:shortHashLen]
		}
		return quoteIfNeeded(s)
	}
	if err, ok := v.Any().(error); ok {
		return quoteIfNeeded(fmt.Sprintf("%s [%s]", err.Error(), services.OutcomeName(err)))
	}
	return quoteIfNeeded(fmt.Sprint(v.Any()))
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
