// Package logging routes the standard logger for the command binaries
// Terminal UIs must never write log lines to stdout or stderr
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	// MaxLogSize triggers rotation of an existing log on startup
	MaxLogSize = 10 * 1024 * 1024
)

// Dir is the directory log files are written to
var Dir = "logs"

// Setup sends log output to Dir/<name>.log when debug is set, discards it otherwise
// Returns the open file for the caller to close, nil when discarding or on failure
func Setup(debug bool, name string) *os.File {
	if !debug {
		log.SetOutput(io.Discard)
		return nil
	}

	if err := os.MkdirAll(Dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return nil
	}

	path := FilePath(name)
	if info, err := os.Stat(path); err == nil && info.Size() > MaxLogSize {
		rotated := filepath.Join(Dir, fmt.Sprintf("%s-%s.log", name, time.Now().Format("20060102-150405")))
		_ = os.Rename(path, rotated)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return nil
	}

	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("=== %s started ===", name)
	return f
}

// FilePath returns the active log path for name
func FilePath(name string) string {
	return filepath.Join(Dir, name+".log")
}
