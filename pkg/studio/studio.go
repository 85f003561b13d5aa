// Package studio provides the public API for embedding the image studio.
// This is the stable API for external consumers.
package studio

import (
	"github.com/tjfontaine/polyglot-image-studio/internal/runtime"
)

// Studio is the main entry point for running the image studio.
// See internal/runtime.Studio for full documentation.
type Studio = runtime.Studio

// Option is a functional option for configuring a Studio.
type Option = runtime.Option

// New creates a new Studio with the given options.
// Example:
//
//	s, err := studio.New(
//	    studio.WithLogger(logger),
//	    studio.WithFileConfig("config.yaml"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Snapshot storage
	WithStorage       = runtime.WithStorage
	WithSnapshotStore = runtime.WithSnapshotStore

	// Events
	WithEventPublisher = runtime.WithEventPublisher

	// Advanced options
	WithHTTPClient     = runtime.WithHTTPClient
	WithTracerProvider = runtime.WithTracerProvider
	WithLogger         = runtime.WithLogger
)
