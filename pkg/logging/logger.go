package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// LogDirEnv overrides the log directory.
const LogDirEnv = "VGTABS_LOG_DIR"

// Level is the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var levelStyles = map[Level]lipgloss.Style{
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

var componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

var (
	// One session ID per process; every log file is named after it.
	sessionID     string
	sessionIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory resolves and creates the log directory: $VGTABS_LOG_DIR,
// else ~/.vgtabs/logs.
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			logDir = os.Getenv(LogDirEnv)
		}
		if logDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(home, ".vgtabs", "logs")
		}
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// sink is the destination shared by a logger and everything derived from it
// with Named.
type sink struct {
	mu        sync.Mutex
	out       *log.Logger
	file      *os.File
	path      string
	console   io.Writer
	verbose   bool
	closeOnce sync.Once
}

func (s *sink) write(component string, level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Printf("[%s] [%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05.000"), component, level, message)

	if s.console == nil || (level == LevelDebug && !s.verbose) {
		return
	}
	fmt.Fprintf(s.console, "%s %s %s\n",
		levelStyles[level].Render(fmt.Sprintf("%-5s", level)),
		componentStyle.Render(component),
		message,
	)
}

func (s *sink) close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}

// Logger writes timestamped, component-tagged entries to the session log
// file ~/.vgtabs/logs/<session-id>-vgtabs.log and, once SetConsole is
// called, to a console writer too.
//
// The file gets every entry. The console skips Debug unless verbose.
type Logger struct {
	component string
	sink      *sink
	owner     bool
}

// NewLogger opens the session log file for component.
//
// If the file cannot be opened it returns a logger on stderr together with
// the error, so callers may keep logging either way.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	path := filepath.Join(logDir, getSessionID()+"-vgtabs.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		component: component,
		sink:      &sink{out: log.New(file, "", 0), file: file, path: path},
		owner:     true,
	}, nil
}

// NewWriterLogger logs to w only.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		sink:      &sink{out: log.New(w, "", 0)},
		owner:     true,
	}
}

func newFallbackLogger(component string, err error) *Logger {
	l := NewWriterLogger(component, os.Stderr)
	l.Warnf("File logging unavailable, using stderr: %v", err)
	return l
}

// Named returns a logger for another component writing to the same
// destinations. Closing it is a no-op.
func (l *Logger) Named(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// SetConsole mirrors entries to w with level colouring, for this logger and
// every logger sharing its destinations. Pass nil to detach.
func (l *Logger) SetConsole(w io.Writer, verbose bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.console = w
	l.sink.verbose = verbose
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.sink.write(l.component, level, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(LevelError, format, v...) }

// LogPath is the session log file, or "" when not logging to a file.
func (l *Logger) LogPath() string {
	return l.sink.path
}

// Close closes the log file. It is safe to call more than once.
func (l *Logger) Close() error {
	if !l.owner {
		return nil
	}
	return l.sink.close()
}
