// Package ingest discovers contract files in watched inbox folders.
package ingest

import (
	"context"
)

// Result is the per-file inbox outcome.
type Result struct {
	SourcePath   string `json:"source_path"`
	ReportID     string `json:"report_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	HashHex      string `json:"sha256,omitempty"`
	Err          string `json:"error,omitempty"`
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32 `json:"scanned"`
	Matched uint32 `json:"matched"`
	Skipped uint32 `json:"skipped"`
	Failed  uint32 `json:"failed"`
}

// FileProcessor analyzes one file from disk.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (Result, error)
}
