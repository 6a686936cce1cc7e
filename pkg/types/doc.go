// Package types defines the shared domain types for the Kita Nextcloud
// Tables automation: remote table descriptors, columns, rows, and the
// TableData unit exchanged between the client, the backup job, and the
// family-hours pipeline.
package types
