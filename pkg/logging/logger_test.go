package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points logging at a temporary directory and resets global state
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origSessionID := sessionID

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = nil
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	content, err := os.ReadFile(l.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}
	if logger.LogPath() == "" {
		t.Fatal("Expected non-empty log path")
	}
	if filepath.Dir(logger.LogPath()) != logDir {
		t.Errorf("Expected log in %s, got %s", logDir, logger.LogPath())
	}
	if _, err := os.Stat(logger.LogPath()); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.LogPath())
	}
}

func TestLogDirFromEnvironment(t *testing.T) {
	setupTestDir(t)
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	logDir = ""
	t.Setenv(LogDirEnv, dir)

	logger, err := NewLogger("env")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if filepath.Dir(logger.LogPath()) != dir {
		t.Errorf("Expected log in %s, got %s", dir, logger.LogPath())
	}
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	logContent := readLog(t, logger)
	expectedPatterns := []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 123",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	}
	for _, pattern := range expectedPatterns {
		if !strings.Contains(logContent, pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, logContent)
		}
	}
}

func TestMultipleComponents(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("component1")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("component2")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	// Same session, same file.
	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Infof("Message from component1")
	logger2.Infof("Message from component2")

	logContent := readLog(t, logger1)
	if !strings.Contains(logContent, "[component1]") {
		t.Error("Log missing component1 entries")
	}
	if !strings.Contains(logContent, "[component2]") {
		t.Error("Log missing component2 entries")
	}
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-vgtabs.log") {
		t.Errorf("Expected log file to end with '-vgtabs.log', got %q", fileName)
	}
	if session := strings.TrimSuffix(fileName, "-vgtabs.log"); session != getSessionID() {
		t.Errorf("Expected file named after session %q, got %q", getSessionID(), session)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(9):   "LEVEL(9)",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}

func TestConsoleSink(t *testing.T) {
	var console bytes.Buffer
	logger := NewWriterLogger("monitor", io.Discard)
	logger.SetConsole(&console, false)

	logger.Infof("Table found, loading data...")
	logger.Debugf("hidden detail")
	logger.Errorf("Run failed: %s", "boom")

	out := console.String()
	if !strings.Contains(out, "Table found, loading data...") {
		t.Errorf("Console missing info line:\n%s", out)
	}
	if !strings.Contains(out, "Run failed: boom") {
		t.Errorf("Console missing error line:\n%s", out)
	}
	if strings.Contains(out, "hidden detail") {
		t.Errorf("Debug line should not reach console unless verbose:\n%s", out)
	}

	logger.SetConsole(&console, true)
	logger.Debugf("now visible")
	if !strings.Contains(console.String(), "now visible") {
		t.Error("Verbose console should include debug lines")
	}
}

func TestNamedSharesSinks(t *testing.T) {
	var buf, console bytes.Buffer
	parent := NewWriterLogger("cli", &buf)
	child := parent.Named("pipeline")

	// Console attached after Named still reaches the child.
	parent.SetConsole(&console, false)

	child.Warnf("careful")
	parent.Infof("hello")

	out := buf.String()
	if !strings.Contains(out, "[pipeline] [WARN] careful") {
		t.Errorf("Missing child entry:\n%s", out)
	}
	if !strings.Contains(out, "[cli] [INFO] hello") {
		t.Errorf("Missing parent entry:\n%s", out)
	}
	if !strings.Contains(console.String(), "careful") {
		t.Errorf("Child entry missing from console:\n%s", console.String())
	}
}

func TestNamedCloseKeepsFileOpen(t *testing.T) {
	setupTestDir(t)

	parent, err := NewLogger("cli")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer parent.Close()

	child := parent.Named("browser")
	if err := child.Close(); err != nil {
		t.Errorf("Close on named logger failed: %v", err)
	}

	parent.Infof("still writing")
	if !strings.Contains(readLog(t, parent), "still writing") {
		t.Error("Parent file closed by named logger")
	}
}
