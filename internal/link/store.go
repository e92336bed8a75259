package link

import (
	"context"
	"time"
)

// Store defines the persistence operations for Link entities.
// Implementations must enforce short-code uniqueness at the storage
// layer; concurrent creates racing on the same code must surface as a
// Conflict error, never as a second successful insert.
type Store interface {
	Create(ctx context.Context, l Link) (Link, error)
	GetByCode(ctx context.Context, code string) (Link, error)
	GetByOriginalURL(ctx context.Context, originalURL string) (Link, error)
	SearchByOriginalURL(ctx context.Context, originalURL string) ([]Link, error)
	Update(ctx context.Context, code string, upd StoreUpdate) (Link, error)
	Delete(ctx context.Context, code string) error

	// IncrementVisit is an atomic increment-and-touch. Count and
	// last-visited move together in a single statement so concurrent
	// redirects never lose updates.
	IncrementVisit(ctx context.Context, code string) (Link, error)

	ListExpired(ctx context.Context, before time.Time) ([]Link, error)
	ListUnused(ctx context.Context, olderThan time.Time) ([]Link, error)

	// ArchiveAndDelete copies the link into the archive and removes it
	// from the live table in one transaction. The archive row commits
	// with the delete or neither happens.
	ArchiveAndDelete(ctx context.Context, code string) error
	ListArchived(ctx context.Context, limit, offset int) ([]ArchivedLink, error)
}

// StoreUpdate carries the mutable fields for a partial update.
// Nil means "leave unchanged". SetExpiresAt distinguishes clearing the
// expiration (true with nil ExpiresAt) from not touching it.
type StoreUpdate struct {
	OriginalURL  *string
	ExpiresAt    *time.Time
	SetExpiresAt bool
}
