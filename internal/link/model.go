package link

import (
	"time"

	"github.com/google/uuid"
)

// Link is a stored short link.
type Link struct {
	ID            uuid.UUID
	OriginalURL   string
	Code          string
	ExpiresAt     *time.Time
	Visits        int64
	LastVisitedAt *time.Time
	OwnerID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ArchivedLink is a link captured by the expired sweep before deletion.
// Seq is assigned by the archive and never changes, so it is the
// pagination key for expired history.
type ArchivedLink struct {
	Seq       int64
	Link      Link
	ExpiredAt time.Time
}

// IsExpired reports whether the link's expiration has passed at the given
// instant. Links without an expiration never expire. Every read path uses
// this single predicate; physical removal is the cleanup sweep's job.
func IsExpired(l Link, now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
