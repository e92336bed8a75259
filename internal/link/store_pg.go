package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/linkhub/internal/errx"
	"github.com/sundayezeilo/linkhub/internal/idgen"
)

const linkColumns = "id, original_url, code, expires_at, visits, last_visited_at, owner_id, created_at, updated_at"

type pgStore struct {
	pool *pgxpool.Pool
	ids  idgen.Generator
}

// StoreConfig holds configuration for the Postgres store.
type StoreConfig struct {
	IDGenerator idgen.Generator
}

// NewPgStore creates a Store backed by PostgreSQL.
func NewPgStore(pool *pgxpool.Pool, config *StoreConfig) Store {
	if config == nil {
		config = &StoreConfig{}
	}

	// Default: UUID v7 (good for DB locality). Retry once by default inside idgen.NewV7.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &pgStore{
		pool: pool,
		ids:  config.IDGenerator,
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func textPtr(s pgtype.Text) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLink(row scannable) (Link, error) {
	var (
		l             Link
		expiresAt     pgtype.Timestamptz
		lastVisitedAt pgtype.Timestamptz
		ownerID       pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(&l.ID, &l.OriginalURL, &l.Code, &expiresAt, &l.Visits, &lastVisitedAt, &ownerID, &createdAt, &updatedAt)
	if err != nil {
		return Link{}, err
	}

	l.CreatedAt, err = mustTime(createdAt, "created_at")
	if err != nil {
		return Link{}, err
	}
	l.UpdatedAt, err = mustTime(updatedAt, "updated_at")
	if err != nil {
		return Link{}, err
	}
	l.ExpiresAt = timePtr(expiresAt)
	l.LastVisitedAt = timePtr(lastVisitedAt)
	l.OwnerID = textPtr(ownerID)

	return l, nil
}

func (s *pgStore) Create(ctx context.Context, l Link) (Link, error) {
	const op = "link.store.Create"

	// Generate ID if not provided
	if l.ID == uuid.Nil {
		id, err := s.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		l.ID = id
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO links (id, original_url, code, expires_at, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+linkColumns,
		l.ID, l.OriginalURL, l.Code, l.ExpiresAt, l.OwnerID,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return created, nil
}

func (s *pgStore) GetByCode(ctx context.Context, code string) (Link, error) {
	const op = "link.store.GetByCode"

	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE code = $1`, code)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) GetByOriginalURL(ctx context.Context, originalURL string) (Link, error) {
	const op = "link.store.GetByOriginalURL"

	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE original_url = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, originalURL)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) SearchByOriginalURL(ctx context.Context, originalURL string) ([]Link, error) {
	const op = "link.store.SearchByOriginalURL"

	rows, err := s.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE original_url = $1
		 ORDER BY created_at DESC`, originalURL)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	return collectLinks(op, rows)
}

func (s *pgStore) Update(ctx context.Context, code string, upd StoreUpdate) (Link, error) {
	const op = "link.store.Update"

	row := s.pool.QueryRow(ctx,
		`UPDATE links SET
			original_url = COALESCE($2, original_url),
			expires_at   = CASE WHEN $3 THEN $4 ELSE expires_at END,
			updated_at   = now()
		 WHERE code = $1
		 RETURNING `+linkColumns,
		code, upd.OriginalURL, upd.SetExpiresAt, upd.ExpiresAt,
	)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) Delete(ctx context.Context, code string) error {
	const op = "link.store.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM links WHERE code = $1`, code)
	if err != nil {
		return mapStoreError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, pgx.ErrNoRows)
	}
	return nil
}

func (s *pgStore) IncrementVisit(ctx context.Context, code string) (Link, error) {
	const op = "link.store.IncrementVisit"

	row := s.pool.QueryRow(ctx,
		`UPDATE links SET
			visits          = visits + 1,
			last_visited_at = now(),
			updated_at      = now()
		 WHERE code = $1
		 RETURNING `+linkColumns, code)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) ListExpired(ctx context.Context, before time.Time) ([]Link, error) {
	const op = "link.store.ListExpired"

	rows, err := s.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE expires_at IS NOT NULL AND expires_at <= $1
		 ORDER BY expires_at`, before)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	return collectLinks(op, rows)
}

func (s *pgStore) ListUnused(ctx context.Context, olderThan time.Time) ([]Link, error) {
	const op = "link.store.ListUnused"

	rows, err := s.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE COALESCE(last_visited_at, created_at) < $1
		 ORDER BY COALESCE(last_visited_at, created_at)`, olderThan)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	return collectLinks(op, rows)
}

func (s *pgStore) ArchiveAndDelete(ctx context.Context, code string) error {
	const op = "link.store.ArchiveAndDelete"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapStoreError(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Archive first. If the insert does not land, the delete must not
	// happen either; the transaction enforces that ordering.
	tag, err := tx.Exec(ctx,
		`INSERT INTO expired_links
			(link_id, original_url, code, expires_at, visits, last_visited_at, owner_id, created_at, updated_at)
		 SELECT id, original_url, code, expires_at, visits, last_visited_at, owner_id, created_at, updated_at
		 FROM links WHERE code = $1`, code)
	if err != nil {
		return mapStoreError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, pgx.ErrNoRows)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM links WHERE code = $1`, code); err != nil {
		return mapStoreError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStoreError(op, err)
	}
	return nil
}

func (s *pgStore) ListArchived(ctx context.Context, limit, offset int) ([]ArchivedLink, error) {
	const op = "link.store.ListArchived"

	rows, err := s.pool.Query(ctx,
		`SELECT seq, link_id, original_url, code, expires_at, visits, last_visited_at, owner_id, created_at, updated_at, expired_at
		 FROM expired_links
		 ORDER BY seq
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	var out []ArchivedLink
	for rows.Next() {
		var (
			a             ArchivedLink
			expiresAt     pgtype.Timestamptz
			lastVisitedAt pgtype.Timestamptz
			ownerID       pgtype.Text
			createdAt     pgtype.Timestamptz
			updatedAt     pgtype.Timestamptz
			expiredAt     pgtype.Timestamptz
		)
		err := rows.Scan(&a.Seq, &a.Link.ID, &a.Link.OriginalURL, &a.Link.Code,
			&expiresAt, &a.Link.Visits, &lastVisitedAt, &ownerID, &createdAt, &updatedAt, &expiredAt)
		if err != nil {
			return nil, mapStoreError(op, err)
		}

		a.Link.CreatedAt, err = mustTime(createdAt, "created_at")
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		a.Link.UpdatedAt, err = mustTime(updatedAt, "updated_at")
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		a.ExpiredAt, err = mustTime(expiredAt, "expired_at")
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		a.Link.ExpiresAt = timePtr(expiresAt)
		a.Link.LastVisitedAt = timePtr(lastVisitedAt)
		a.Link.OwnerID = textPtr(ownerID)

		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return out, nil
}

func collectLinks(op string, rows pgx.Rows) ([]Link, error) {
	var out []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, mapStoreError(op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return out, nil
}
