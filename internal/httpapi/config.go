package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Options configures NewMux. The zero value is usable.
type Options struct {
	// Logger receives access logs and stream lifecycle events.
	Logger zerolog.Logger
	// BaseContext is canceled on shutdown so open streams end promptly.
	BaseContext context.Context
	// Keepalive is the SSE idle period before a ping frame.
	Keepalive time.Duration
	// DefaultSince is used by /api/history when the query omits since.
	DefaultSince string
	// LatestFallback answers /api/sensors/{name}/latest when the sampler has
	// nothing yet (e.g. right after a restart).
	LatestFallback LatestSource
	CORS           CORSOptions
	Now            func() time.Time
}

// CORSOptions enables CORS (opt-in). Empty lists fall back to permissive defaults.
type CORSOptions struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func (o Options) withDefaults() Options {
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.DefaultSince == "" {
		o.DefaultSince = "24h"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
