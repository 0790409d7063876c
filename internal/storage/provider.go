// Package storage defines the content tree file-system abstraction.
package storage

import "time"

// FileInfo describes one regular file under the content root.
type FileInfo struct {
	Path    string // relative to the root, slash separated
	Size    int64
	ModTime time.Time
}

// Provider is the interface for content tree file operations.
type Provider interface {
	// List returns every regular file under dir (relative to the root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path (relative to the root).
	Write(path string, content []byte) error
	// Abs returns the absolute file-system path for path (relative to the root).
	Abs(path string) (string, error)
}
