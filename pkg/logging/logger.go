package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI escapes used by the console encoder.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red           = "\033[31m"
	Green         = "\033[32m"
	Yellow        = "\033[33m"
	Blue          = "\033[34m"
	Magenta       = "\033[35m"
	Cyan          = "\033[36m"
	White         = "\033[37m"
	Gray          = "\033[90m"
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// ColoredLogger wraps zap.Logger with component-tagged messages.
type ColoredLogger struct {
	*zap.Logger
	enableColors bool
}

// Component tags a log line with the part of chatd that wrote it.
type Component string

const (
	ComponentLedger   Component = "LEDGER"
	ComponentStore    Component = "STORE"
	ComponentKeyStore Component = "KEYSTORE"
	ComponentEnvelope Component = "ENVELOPE"
	ComponentContent  Component = "CONTENT"
	ComponentCache    Component = "CACHE"
	ComponentAuth     Component = "AUTH"
	ComponentChat     Component = "CHAT"
	ComponentGateway  Component = "GATEWAY"
	ComponentGeneral  Component = "GENERAL"
)

var componentColors = map[Component]string{
	ComponentLedger:   BrightBlue,
	ComponentStore:    BrightMagenta,
	ComponentKeyStore: BrightCyan,
	ComponentEnvelope: Cyan,
	ComponentContent:  BrightYellow,
	ComponentCache:    Green,
	ComponentAuth:     Magenta,
	ComponentChat:     Blue,
	ComponentGateway:  BrightGreen,
	ComponentGeneral:  Yellow,
}

var levelLetters = map[zapcore.Level]string{
	zapcore.DebugLevel: "D",
	zapcore.InfoLevel:  "I",
	zapcore.WarnLevel:  "W",
	zapcore.ErrorLevel: "E",
}

func levelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return Gray
	case zapcore.InfoLevel:
		return BrightWhite
	case zapcore.WarnLevel:
		return BrightYellow
	case zapcore.ErrorLevel:
		return BrightRed
	default:
		return Red
	}
}

// consoleEncoder prints "15:04:05 I ledger [LEDGER] msg fields".
func consoleEncoder(colors bool) zapcore.Encoder {
	paint := func(color, s string) string {
		if !colors {
			return s
		}
		return color + s + Reset
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(Dim, t.Format("15:04:05")))
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		letter, ok := levelLetters[level]
		if !ok {
			letter = "?"
		}
		enc.AppendString(paint(levelColor(level)+Bold, letter))
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(Dim, strings.TrimSuffix(filepath.Base(caller.File), ".go")))
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// Options controls how a ColoredLogger is built.
type Options struct {
	Level        zapcore.Level
	JSON         bool
	EnableColors bool
	FilePath     string
}

// NewColoredLogger returns a debug-level console logger on stdout.
func NewColoredLogger(component Component, enableColors bool) (*ColoredLogger, error) {
	return New(Options{Level: zapcore.DebugLevel, EnableColors: enableColors})
}

// NewFileLogger returns a debug-level console logger appending to filePath.
func NewFileLogger(component Component, filePath string, enableColors bool) (*ColoredLogger, error) {
	return New(Options{Level: zapcore.DebugLevel, EnableColors: enableColors, FilePath: filePath})
}

// NewNop returns a logger that discards everything.
func NewNop() *ColoredLogger {
	return &ColoredLogger{Logger: zap.NewNop()}
}

// New builds a logger from explicit options. JSON output never carries ANSI
// colors.
func New(opts Options) (*ColoredLogger, error) {
	colors := opts.EnableColors && !opts.JSON
	encoder := consoleEncoder(colors)
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	sink := zapcore.AddSync(os.Stdout)
	if opts.FilePath != "" {
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
		}
		sink = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, sink, opts.Level)
	return &ColoredLogger{
		Logger:       zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		enableColors: colors,
	}, nil
}

// ParseLevel maps a config level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Secret logs a short sha256 fingerprint of value instead of the value, so
// session tokens and key material can be correlated across lines but never
// read back from the log.
func Secret(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "")
	}
	sum := sha256.Sum256([]byte(value))
	return zap.String(key, "sha256:"+hex.EncodeToString(sum[:4]))
}

func (l *ColoredLogger) tag(component Component, msg string) string {
	if !l.enableColors {
		return "[" + string(component) + "] " + msg
	}
	color, ok := componentColors[component]
	if !ok {
		color = White
	}
	return color + "[" + string(component) + "]" + Reset + " " + msg
}

func (l *ColoredLogger) ComponentInfo(component Component, msg string, fields ...zap.Field) {
	l.Info(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentWarn(component Component, msg string, fields ...zap.Field) {
	l.Warn(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentError(component Component, msg string, fields ...zap.Field) {
	l.Error(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentDebug(component Component, msg string, fields ...zap.Field) {
	l.Debug(l.tag(component, msg), fields...)
}
