package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"beltsensor/internal/config"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging (debug/info/warning/error) to rotating files
// and a colored console.
type Logger struct {
	console    *slog.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to stderr and ensures the log directory exists.
func NewLogger(config *config.Config) (*Logger, error) {
	return New(config.LogDirectory, os.Stderr)
}

// New creates a Logger with an explicit console writer.
func New(logDir string, console io.Writer) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger := &Logger{
		logDir: logDir,
		console: slog.New(tint.NewHandler(console, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		})),
	}

	logger.setupLoggers()
	return logger, nil
}

// setupLoggers initializes the rotating per-level file loggers.
func (l *Logger) setupLoggers() {
	l.infoLog = log.New(l.openLogFile("info.log"), "INFO    ", log.Ldate|log.Ltime)
	l.warningLog = log.New(l.openLogFile("warning.log"), "WARNING ", log.Ldate|log.Ltime)
	l.errorLog = log.New(l.openLogFile("error.log"), "ERROR   ", log.Ldate|log.Ltime)
}

func (l *Logger) openLogFile(name string) io.Writer {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, name),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		LocalTime:  true,
	}
	l.files = append(l.files, file)
	return file
}

// Debug writes a formatted debug entry to the console only.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.console.Debug(fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Info(msg)
	l.infoLog.Print(msg)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Warn(msg)
	l.warningLog.Print(msg)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Error(msg)
	l.errorLog.Print(msg)
}

// Directory returns the directory holding the level files.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}

	l.console.Info("log file cleared", "file", fileName)
	return nil
}

// Close flushes and closes the level files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
