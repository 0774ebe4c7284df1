// ABOUTME: Store types and interfaces for site persistence
// ABOUTME: Defines Admin, Message, GalleryItem, VisitEvent and per-concern store interfaces

package store

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when creating an admin with a taken username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmptyMessage is returned when a message has neither text nor an attachment.
var ErrEmptyMessage = errors.New("message has no text or attachment")

// ErrReplaceConflict is returned when a gallery filename swap loses a
// concurrent compare-and-swap race.
var ErrReplaceConflict = errors.New("gallery item changed concurrently")

// Admin represents an administrator who can access the dashboard.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Message is a row in the contact ledger. At least one of Text or Filename
// is set. Receiver, Location and Platform arrived in later schema versions
// and may be empty on old rows.
type Message struct {
	ID        string
	Sender    string
	Receiver  string
	Text      string
	Filename  string
	Seen      bool
	Location  string
	Platform  string
	Timestamp time.Time
}

// GalleryItem is metadata for one uploaded image. The Filename references a
// filesystem artifact owned 1:1 by this row.
type GalleryItem struct {
	ID        string
	Filename  string
	Caption   string
	CreatedAt time.Time
}

// VisitEvent records a public page view. Append-only.
type VisitEvent struct {
	ID        string
	IP        string
	Source    string
	Page      string
	Timestamp time.Time
}

// SenderCount pairs a sender with their message count.
type SenderCount struct {
	Sender string
	Count  int
}

// CredentialStore persists administrator identities.
type CredentialStore interface {
	CreateAdmin(ctx context.Context, admin *Admin) error
	CountAdmins(ctx context.Context) (int, error)
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)
}

// Ledger is the append-mostly contact message store.
type Ledger interface {
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context) ([]*Message, error)
	ListThread(ctx context.Context, counterpart string) ([]*Message, error)
	Messages(ctx context.Context) iter.Seq2[*Message, error]
	MarkSeen(ctx context.Context, sender string) error
	DeleteMessage(ctx context.Context, id string) error
}

// GalleryStore persists gallery item metadata.
type GalleryStore interface {
	CreateGalleryItem(ctx context.Context, item *GalleryItem) error
	GetGalleryItem(ctx context.Context, id string) (*GalleryItem, error)
	ListGalleryItems(ctx context.Context) ([]*GalleryItem, error)
	SwapGalleryFilename(ctx context.Context, id, oldFilename, newFilename string) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

// VisitStore records and reads public page-view events.
type VisitStore interface {
	RecordVisit(ctx context.Context, event *VisitEvent) error
	CountVisits(ctx context.Context) (int, error)
	RecentVisits(ctx context.Context, limit int) ([]*VisitEvent, error)
}

// AnalyticsStore provides the read-only dashboard queries. Implementations
// must never mutate the ledger and must tolerate an empty store.
type AnalyticsStore interface {
	CountMessages(ctx context.Context) (int, error)
	CountDistinctSenders(ctx context.Context, excluding string) (int, error)
	CountByLocation(ctx context.Context) (map[string]int, error)
	CountByPlatform(ctx context.Context) (map[string]int, error)
	TopSenders(ctx context.Context, limit int, excluding string) ([]SenderCount, error)
	RecentActivity(ctx context.Context, limit int) ([]*Message, error)
}
