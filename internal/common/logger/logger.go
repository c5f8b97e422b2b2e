package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Env      string
	Name     string
	Level    string
	FilePath string // directory for a rotated log file; empty disables the file sink
}

// New builds a zap logger. Development uses a console encoder at debug level,
// everything else JSON at the configured level.
func New(opts Options) (*zap.Logger, error) {
	dev := isDevelopment(opts.Env)

	encoderConfig := zap.NewProductionEncoderConfig()
	if dev {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if dev {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	level := zap.InfoLevel
	if dev {
		level = zap.DebugLevel
	}
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		if !dev {
			level = parsed
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(opts.FilePath, 0o755); err != nil {
			return nil, err
		}
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.FilePath, fileName(opts.Name)),
			MaxSize:    10, // MB
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if opts.Name != "" {
		log = log.Named(opts.Name)
	}
	return log, nil
}

func isDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "development", "dev", "local":
		return true
	}
	return false
}

func fileName(name string) string {
	if name == "" {
		name = "service"
	}
	return name + ".log"
}
