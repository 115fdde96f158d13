package utils

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions configures the structured logger.
type LoggerOptions struct {
	// Level is one of the logrus level names (debug, info, warn, error).
	Level string
	// File, when not empty, receives an uncolored copy of the log output with size based rotation.
	File string
	// Output is the primary destination, stderr when nil.
	Output io.Writer
	// NoColors disables the ANSI colors of the formatter.
	NoColors bool
}

// NewLogger returns a logrus logger writing through the nested formatter.
func NewLogger(opts LoggerOptions) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = lvl
	}
	logger.SetLevel(level)

	logger.SetFormatter(newFormatter(opts.NoColors))

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	logger.SetOutput(out)

	if opts.File != "" {
		logger.AddHook(&fileHook{
			writer: &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    50,
				MaxAge:     7,
				MaxBackups: 3,
			},
			formatter: newFormatter(true),
		})
	}
	logger.SetReportCaller(level >= logrus.DebugLevel)

	return logger, nil
}

func newFormatter(noColors bool) *formatter.Formatter {
	return &formatter.Formatter{
		NoColors:        noColors,
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
		FieldsOrder:     []string{"session", "frame", "fps", "num_faces", "avg_joy_score"},
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	}
}

// fileHook copies every entry to the rotated log file, always without colors.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// DiscardLogger returns a logger which drops every entry.
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
