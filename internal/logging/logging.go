// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // optional; rotated by size

	// MaxSizeMB and MaxBackups bound the rotated log file. Zero uses
	// lumberjack's defaults.
	MaxSizeMB  int
	MaxBackups int

	// Stderr overrides the console destination; nil means os.Stderr.
	Stderr io.Writer
}

// New returns a logger writing to stderr and, when o.File is set, to a
// rotating file. The file always gets JSON lines.
func New(o Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if o.Level != "" {
		l, err := zapcore.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEnc zapcore.Encoder
	switch o.Format {
	case "", "console":
		cc := encCfg
		cc.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(cc)
	case "json":
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format %q (want console|json)", o.Format)
	}

	var stderr io.Writer = os.Stderr
	if o.Stderr != nil {
		stderr = o.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(stderr), level),
	}

	if o.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
