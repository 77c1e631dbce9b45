package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

const testName = "fmtest"

func useTempDir(t *testing.T) {
	t.Helper()
	old := Dir
	Dir = filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() {
		Dir = old
		log.SetOutput(os.Stderr)
	})
}

func TestSetup_DisabledByDefault(t *testing.T) {
	useTempDir(t)

	logFile := Setup(false, testName)
	if logFile != nil {
		t.Error("Expected nil log file when debug=false")
		logFile.Close()
	}

	if output := log.Writer(); output != io.Discard {
		t.Errorf("Expected log output to be io.Discard, got %v", output)
	}
	if _, err := os.Stat(Dir); !os.IsNotExist(err) {
		t.Error("Expected no logs directory without debug")
	}
}

func TestSetup_EnabledWithDebug(t *testing.T) {
	useTempDir(t)

	logFile := Setup(true, testName)
	if logFile == nil {
		t.Fatal("Expected non-nil log file when debug=true")
	}
	defer logFile.Close()

	logPath := FilePath(testName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatal("Expected log file to be created")
	}

	log.Println("Test log message")

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Failed to stat log file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected log file to contain content")
	}
}

func TestSetup_Rotation(t *testing.T) {
	useTempDir(t)

	if err := os.MkdirAll(Dir, 0755); err != nil {
		t.Fatalf("Failed to create logs directory: %v", err)
	}
	logPath := FilePath(testName)

	large, err := os.Create(logPath)
	if err != nil {
		t.Fatalf("Failed to create large log file: %v", err)
	}
	if err := large.Truncate(MaxLogSize + 1); err != nil {
		t.Fatalf("Failed to grow log file: %v", err)
	}
	large.Close()

	logFile := Setup(true, testName)
	if logFile == nil {
		t.Fatal("Expected non-nil log file")
	}
	defer logFile.Close()

	entries, err := os.ReadDir(Dir)
	if err != nil {
		t.Fatalf("Failed to read logs directory: %v", err)
	}
	rotated := false
	for _, entry := range entries {
		if entry.Name() != testName+".log" && filepath.Ext(entry.Name()) == ".log" {
			rotated = true
			break
		}
	}
	if !rotated {
		t.Error("Expected to find rotated log file")
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Failed to stat new log file: %v", err)
	}
	if info.Size() > MaxLogSize {
		t.Errorf("Expected new log file below %d bytes, got %d", MaxLogSize, info.Size())
	}
}

func TestSetup_NoStdoutStderr(t *testing.T) {
	useTempDir(t)

	logFile := Setup(true, testName)
	if logFile == nil {
		t.Fatal("Expected non-nil log file")
	}
	defer logFile.Close()

	output := log.Writer()
	if output == os.Stdout || output == os.Stderr {
		t.Error("Log output should not be stdout or stderr")
	}
}
