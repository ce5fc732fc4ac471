package eeg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxRecordingFileSize bounds JSON recordings read from disk.
const maxRecordingFileSize = 512 * 1024 * 1024

// LoadRecording reads a JSON-encoded Recording and validates it.
func LoadRecording(path string) (*Recording, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("recording file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat recording: %w", err)
	}
	if info.Size() > maxRecordingFileSize {
		return nil, fmt.Errorf("recording too large: %d bytes (max %d)", info.Size(), maxRecordingFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse recording JSON: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}
