// Package state persists the facts of a running routeguard process so
// that stop, status and cleanup can find it later.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/routeguard-io/routeguard/pkg/logger"
)

const (
	runPath      = "/run/routeguard/state.json"
	fallbackPath = "/tmp/routeguard-state.json"
)

// State describes a running instance.
type State struct {
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	Mode            string    `json:"mode"`
	Interface       string    `json:"interface"`
	IntervalSeconds int       `json:"interval_seconds"`
	OutputFile      string    `json:"output_file,omitempty"`
}

// Write persists the state. /run is preferred; when it is not writable
// (unprivileged monitor mode) the file lands in /tmp instead. Returns
// the path actually written.
func Write(s State) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}

	for _, path := range []string{runPath, fallbackPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logger.Log.Debugf("state dir %s: %v", filepath.Dir(path), err)
			continue
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			logger.Log.Debugf("state file %s: %v", path, err)
			continue
		}
		return path, nil
	}

	return "", fmt.Errorf("failed to write state to %s or %s", runPath, fallbackPath)
}

// Read loads the state of a previous run, checking the preferred path
// first.
func Read() (State, string, error) {
	var lastErr error
	for _, path := range []string{runPath, fallbackPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		var s State
		if err := json.Unmarshal(data, &s); err != nil {
			return State{}, path, fmt.Errorf("failed to parse state file %s: %w", path, err)
		}
		return s, path, nil
	}
	return State{}, "", fmt.Errorf("no state file found: %w", lastErr)
}

// Remove deletes any state file left behind.
func Remove() {
	for _, path := range []string{runPath, fallbackPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Log.Debugf("failed to remove state file %s: %v", path, err)
		}
	}
}

// Alive reports whether the recorded pid still refers to a live
// process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
