// Package hub is the in-process publish/subscribe point for live readings.
//
// Publish never blocks: every subscriber owns a bounded channel and an event
// that does not fit is dropped for that subscriber only. Encoder turns a
// subscription into a Server-Sent Events stream with idle keepalives.
package hub
