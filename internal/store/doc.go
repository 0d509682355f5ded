// Package store persists readings. Backends share the Store interface: an
// in-memory store for tests and development, SQLite for single-board
// deployments and Postgres for shared installations.
package store
