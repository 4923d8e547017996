// Package pebblestore keeps the tracker queue snapshot in a local Pebble database.
//
// It suits desktop agents and edge services that have a writable data directory but no database
// server. One Store may hold many keys, so several clients can share a directory as long as each
// uses its own storage key.
package pebblestore
