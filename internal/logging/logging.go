package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Package logging configures the shared logrus logger for the CLI and the
// interactive session. The default level is warn so that harness output
// (verdicts, diffs, prompts) stays readable; debug and info are opt-in.

// ParseLevel maps a user-supplied level name to a logrus level.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "", "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.WarnLevel, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter selects the output formatter for the given format name.
// "text" yields a compact human formatter; anything else yields JSON.
func GetFormatter(format string) logrus.Formatter {
	switch format {
	case "", "text":
		return &plainFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true}
	default:
		return &logrus.JSONFormatter{}
	}
}

// New builds a logger writing to w with the given level and format names.
// Invalid names fall back to the defaults and the error reports which
// name was rejected.
func New(w io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(GetFormatter(format))
	return logger, err
}

// plainFormatter renders one entry per line: level, message, then sorted
// key=value fields. Easier to scan in a terminal session than the default
// logrus text formatter.
type plainFormatter struct{}

func (p *plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	fmt.Fprintf(b, "[%s] %s", strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
