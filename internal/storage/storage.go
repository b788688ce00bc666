// Package storage provides the StorageAdapter implementations behind
// catalog libraries: local directories, S3 buckets and an in-memory store.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tagflow/internal/catalog"
	"tagflow/internal/database/sqlc"
	"tagflow/internal/secrets"
)

// Supported protocol names.
const (
	ProtocolLocal  = "local"
	ProtocolS3     = "s3"
	ProtocolMemory = "memory"
	ProtocolWebDAV = "webdav"
)

// Options configure every adapter the Opener creates.
type Options struct {
	// Ignore patterns applied to every listing.
	Ignore []string
	// Unsealer decrypts sealed library options. Nil passes values through.
	Unsealer *secrets.Unsealer
}

// Opener creates adapters from library definitions.
type Opener struct {
	opts Options

	mu     sync.RWMutex
	memory map[string]*MemoryAdapter
}

var _ catalog.StorageOpener = (*Opener)(nil)

func NewOpener(opts Options) *Opener {
	if opts.Unsealer == nil {
		opts.Unsealer = secrets.NewUnsealer()
	}
	return &Opener{opts: opts, memory: make(map[string]*MemoryAdapter)}
}

// RegisterMemory makes a memory adapter available to libraries whose
// protocol is "memory" and whose base path equals name.
func (o *Opener) RegisterMemory(name string, adapter *MemoryAdapter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.memory[name] = adapter
}

// Open returns the adapter for library. Unknown protocols and webdav yield
// an error wrapping catalog.ErrUnsupportedProtocol.
func (o *Opener) Open(ctx context.Context, library *sqlc.Library) (catalog.StorageAdapter, error) {
	switch library.Protocol {
	case ProtocolLocal:
		return NewLocalAdapter(library.BasePath, o.opts.Ignore)
	case ProtocolS3:
		options, err := DecodeOptions(library.ConfigJson)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", library.Name, err)
		}
		options, err = o.opts.Unsealer.UnsealMap(options)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", library.Name, err)
		}
		s3opts, err := ParseS3Options(options)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", library.Name, err)
		}
		return NewS3Adapter(ctx, library.BasePath, s3opts, o.opts.Ignore)
	case ProtocolMemory:
		o.mu.RLock()
		adapter, ok := o.memory[library.BasePath]
		o.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: no memory store registered as %q", catalog.ErrConnectionFailed, library.BasePath)
		}
		return adapter, nil
	case ProtocolWebDAV:
		return nil, fmt.Errorf("%w: webdav support is not enabled", catalog.ErrUnsupportedProtocol)
	default:
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnsupportedProtocol, library.Protocol)
	}
}

// EncodeOptions serializes library options into the libraries.config_json column.
func EncodeOptions(options map[string]string) (string, error) {
	if len(options) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encoding library options: %w", err)
	}
	return string(data), nil
}

// DecodeOptions is the inverse of EncodeOptions.
func DecodeOptions(configJSON string) (map[string]string, error) {
	options := make(map[string]string)
	if configJSON == "" {
		return options, nil
	}
	if err := json.Unmarshal([]byte(configJSON), &options); err != nil {
		return nil, fmt.Errorf("decoding library options: %w", err)
	}
	return options, nil
}
