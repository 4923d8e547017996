// Package mysql provides a MySQL 8.0+ snapshot backend for the tracker queue.
//
// Each storage key is one row of a small key/value table:
//   - Save is a single INSERT ... ON DUPLICATE KEY UPDATE
//   - Load reads the row by primary key
//   - updated_at is maintained by the store clock
//
// See Schema for the table definition and PruneMaintainer for periodic removal of rows that
// stopped being written, e.g. snapshots of retired installations and quarantined ".corrupt" keys.
package mysql
