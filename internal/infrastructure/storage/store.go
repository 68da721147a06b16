package storage

import (
	"github.com/rotisserie/eris"

	"TourScanner/internal/ports"
)

// Backend names a dedup store implementation.
type Backend string

const (
	BackendFile  Backend = "file"
	BackendTable Backend = "table"
)

// Options selects and configures a backend.
type Options struct {
	Backend Backend
	// Path is the JSON document location for the file backend.
	Path  string
	Table TableOptions
}

// Open returns the configured backend behind the DedupStore interface.
func Open(opts Options) (ports.DedupStore, error) {
	switch opts.Backend {
	case BackendFile:
		return NewFileStore(opts.Path)
	case BackendTable:
		return OpenTableStore(opts.Table)
	default:
		return nil, eris.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
