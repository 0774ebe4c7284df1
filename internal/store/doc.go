// Package store provides persistent storage for the site using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with per-concern
// interfaces:
//
//   - CredentialStore: Administrator identities
//   - Ledger: The contact message ledger
//   - GalleryStore: Gallery item metadata
//   - AnalyticsStore: Read-only dashboard aggregates
//   - VisitStore: Public page-view events
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries.
//
// # Data Models
//
//   - Admin: Dashboard administrator with a bcrypt password hash
//   - Message: One contact-form message or admin reply; at least one of
//     text/attachment is present
//   - GalleryItem: Metadata for an uploaded image, referencing its file
//     artifact 1:1 by filename
//   - VisitEvent: Append-only record of a public page view
//
// # Storage Details
//
// Timestamps are stored as RFC3339 TEXT. The schema is created with
// CREATE TABLE IF NOT EXISTS; columns added after the first deployments are
// applied by idempotent migrations guarded with pragma_table_info checks.
// The ledger preserves insertion order via rowid, so rows submitted in the
// same second keep their submission order.
package store
