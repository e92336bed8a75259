package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sundayezeilo/linkhub/codegen"
	"github.com/sundayezeilo/linkhub/internal/errx"
)

const (
	DefaultCodeLength = 6
	MaxCodeLength     = codegen.MaxCodeLength
	MinCodeLength     = codegen.MinCodeLength
	MaxURLLength      = 2048
	DefaultMaxRetries = 5

	// visitTimeout bounds the detached visit-count write fired after a
	// successful resolve.
	visitTimeout = 5 * time.Second

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ShortenRequest represents the parameters for creating a new link.
type ShortenRequest struct {
	OriginalURL string
	CustomAlias string // Optional: if empty, a code will be generated
	ExpiresAt   *time.Time
	OwnerID     *string
}

// UpdateRequest carries a partial update. Nil fields are left unchanged;
// SetExpiresAt true with a nil ExpiresAt clears the expiration.
type UpdateRequest struct {
	OriginalURL  *string
	ExpiresAt    *time.Time
	SetExpiresAt bool
}

// SweepResult reports per-record outcomes of a cleanup pass. Records
// that were already gone count as succeeded; sweeps are idempotent.
type SweepResult struct {
	Succeeded int
	Failed    int
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Shorten(ctx context.Context, req ShortenRequest) (Link, error)
	Resolve(ctx context.Context, code string) (Link, error)
	Stats(ctx context.Context, code string) (Link, error)
	Update(ctx context.Context, code string, req UpdateRequest) (Link, error)
	Delete(ctx context.Context, code string) error
	Search(ctx context.Context, originalURL string) ([]Link, error)
	ExpiredHistory(ctx context.Context, limit, offset int) ([]ArchivedLink, error)

	SweepExpired(ctx context.Context, now time.Time) (SweepResult, error)
	SweepUnused(ctx context.Context, olderThan time.Time) (SweepResult, error)
}

// service implements the Service interface.
type service struct {
	store          Store
	cache          Cache
	codes          codegen.Generator
	logger         *slog.Logger
	codeLength     int
	codeAlphabet   string
	maxRetries     int
	allowAnonymous bool
	now            func() time.Time

	// onVisitDone, when set, is called after the detached visit write
	// finishes. Tests use it to synchronize on the fire-and-forget path.
	onVisitDone func()
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator  codegen.Generator
	CodeLength     int
	CodeAlphabet   string
	MaxRetries     int // attempts when generating a unique code (default: 5)
	AllowAnonymous bool
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewService creates a new service instance.
func NewService(store Store, cache Cache, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{AllowAnonymous: true}
	}

	codes := config.CodeGenerator
	if codes == nil {
		// DefaultAlphabet is always valid, so this cannot fail for an
		// empty CodeAlphabet; a bad custom alphabet is a config bug.
		gen, err := codegen.NewRandom(config.CodeAlphabet)
		if err != nil {
			panic(fmt.Sprintf("link: invalid code alphabet: %v", err))
		}
		codes = gen
	}

	codeLength := config.CodeLength
	if codeLength < MinCodeLength || codeLength > MaxCodeLength {
		codeLength = DefaultCodeLength
	}

	retries := config.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	alphabet := config.CodeAlphabet
	if alphabet == "" {
		alphabet = codegen.DefaultAlphabet
	}

	return &service{
		store:          store,
		cache:          cache,
		codes:          codes,
		logger:         logger,
		codeLength:     codeLength,
		codeAlphabet:   alphabet,
		maxRetries:     retries,
		allowAnonymous: config.AllowAnonymous,
		now:            now,
	}
}

// Shorten creates a new short link with optional custom alias.
func (s *service) Shorten(ctx context.Context, req ShortenRequest) (Link, error) {
	const op = "link.service.Shorten"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, fmt.Errorf("%w: %s", ErrInvalidURL, err))
	}

	if !s.allowAnonymous && req.OwnerID == nil {
		return Link{}, errx.E(op, errx.Unauthorized, ErrOwnerRequired)
	}

	// Custom alias path: validate and create once. The store's unique
	// constraint decides the winner of a race on the same alias.
	if req.CustomAlias != "" {
		if err := codegen.ValidateAlias(req.CustomAlias, s.codeAlphabet, MinCodeLength, MaxCodeLength); err != nil {
			return Link{}, errx.E(op, errx.Invalid, fmt.Errorf("%w: %s", ErrInvalidAlias, err))
		}

		created, err := s.store.Create(ctx, Link{
			OriginalURL: req.OriginalURL,
			Code:        req.CustomAlias,
			ExpiresAt:   req.ExpiresAt,
			OwnerID:     req.OwnerID,
		})
		if err != nil {
			if errx.KindOf(err) == errx.Conflict {
				return Link{}, errx.E(op, errx.Conflict, ErrAliasTaken)
			}
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}

		s.cachePut(ctx, created)
		return created, nil
	}

	// Generated code path: retry on conflicts
	for range s.maxRetries {
		code, err := s.codes.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.store.Create(ctx, Link{
			OriginalURL: req.OriginalURL,
			Code:        code,
			ExpiresAt:   req.ExpiresAt,
			OwnerID:     req.OwnerID,
		})
		if err == nil {
			s.cachePut(ctx, created)
			return created, nil
		}

		// Retry on conflict, fail on other errors
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.Unavailable, ErrGenerationExhausted)
}

// Resolve returns the link for a code and records the visit. The visit
// write is detached from the caller's context: a cancelled redirect must
// not cancel visit accounting, and a failed visit write must not fail
// the redirect.
func (s *service) Resolve(ctx context.Context, code string) (Link, error) {
	const op = "link.service.Resolve"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	l, err := s.lookup(ctx, op, code, true)
	if err != nil {
		return Link{}, err
	}

	if IsExpired(l, s.now()) {
		// Treated as not resolvable; physical removal is deferred to
		// the expired sweep so the read path stays side-effect-free.
		return Link{}, errx.E(op, errx.Expired, ErrExpired)
	}

	go s.recordVisit(ctx, code)

	return l, nil
}

// Stats returns the link without recording a visit. Expired links are
// still reported; the caller can see the expiration on the record.
func (s *service) Stats(ctx context.Context, code string) (Link, error) {
	const op = "link.service.Stats"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	return s.lookup(ctx, op, code, false)
}

// Update applies a partial update and invalidates every cache key the
// link was reachable under, old original URL included.
func (s *service) Update(ctx context.Context, code string, req UpdateRequest) (Link, error) {
	const op = "link.service.Update"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}
	if req.OriginalURL == nil && !req.SetExpiresAt {
		return Link{}, errx.E(op, errx.Invalid, errors.New("no fields to update"))
	}
	if req.OriginalURL != nil {
		if err := validateURL(*req.OriginalURL); err != nil {
			return Link{}, errx.E(op, errx.Invalid, fmt.Errorf("%w: %s", ErrInvalidURL, err))
		}
	}

	old, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	updated, err := s.store.Update(ctx, code, StoreUpdate{
		OriginalURL:  req.OriginalURL,
		ExpiresAt:    req.ExpiresAt,
		SetExpiresAt: req.SetExpiresAt,
	})
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	// Invalidation happens after the store write has committed. The old
	// by-url key goes away even when the URL changed; the fresh value is
	// then written through under the current keys.
	s.cacheInvalidate(ctx, code, old.OriginalURL)
	s.cachePut(ctx, updated)

	return updated, nil
}

// Delete removes the link and invalidates both cache keys.
func (s *service) Delete(ctx context.Context, code string) error {
	const op = "link.service.Delete"

	if code == "" {
		return errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	l, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if err := s.store.Delete(ctx, code); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	s.cacheInvalidate(ctx, code, l.OriginalURL)
	return nil
}

// Search returns all links for an original URL, most recent first.
func (s *service) Search(ctx context.Context, originalURL string) ([]Link, error) {
	const op = "link.service.Search"

	if originalURL == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("original url cannot be empty"))
	}

	links, err := s.store.SearchByOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// ExpiredHistory pages through links archived by the expired sweep.
func (s *service) ExpiredHistory(ctx context.Context, limit, offset int) ([]ArchivedLink, error) {
	const op = "link.service.ExpiredHistory"

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		return nil, errx.E(op, errx.Invalid, errors.New("offset cannot be negative"))
	}

	archived, err := s.store.ListArchived(ctx, limit, offset)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return archived, nil
}

// SweepExpired archives and removes every link whose expiration is at or
// before now. Per-record failures are logged and counted; the sweep
// never aborts on one bad record.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	const op = "link.service.SweepExpired"

	expired, err := s.store.ListExpired(ctx, now)
	if err != nil {
		return SweepResult{}, errx.E(op, errx.KindOf(err), err)
	}

	var res SweepResult
	for _, l := range expired {
		err := s.store.ArchiveAndDelete(ctx, l.Code)
		if err != nil && errx.KindOf(err) != errx.NotFound {
			res.Failed++
			s.logger.ErrorContext(ctx, "expired sweep: archive-and-delete failed",
				"code", l.Code,
				"error", err.Error(),
			)
			continue
		}

		// Already gone counts as done: another sweep or an explicit
		// delete got there first.
		res.Succeeded++
		s.cacheInvalidate(ctx, l.Code, l.OriginalURL)
	}

	return res, nil
}

// SweepUnused removes links not visited (or, never visited, not created)
// since olderThan. Unlike the expired sweep there is no archive.
func (s *service) SweepUnused(ctx context.Context, olderThan time.Time) (SweepResult, error) {
	const op = "link.service.SweepUnused"

	unused, err := s.store.ListUnused(ctx, olderThan)
	if err != nil {
		return SweepResult{}, errx.E(op, errx.KindOf(err), err)
	}

	var res SweepResult
	for _, l := range unused {
		err := s.store.Delete(ctx, l.Code)
		if err != nil && errx.KindOf(err) != errx.NotFound {
			res.Failed++
			s.logger.ErrorContext(ctx, "unused sweep: delete failed",
				"code", l.Code,
				"error", err.Error(),
			)
			continue
		}

		res.Succeeded++
		s.cacheInvalidate(ctx, l.Code, l.OriginalURL)
	}

	return res, nil
}

// lookup is the shared read path: cache first, store on miss, cache
// repopulated after a store hit. Cache errors degrade to store reads.
func (s *service) lookup(ctx context.Context, op, code string, cacheNegative bool) (Link, error) {
	cached, found, negative, err := s.cache.GetByCode(ctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed, falling back to store",
			"code", code,
			"error", err.Error(),
		)
	} else if found {
		if negative {
			return Link{}, errx.E(op, errx.NotFound, errors.New("code not found"))
		}
		return cached, nil
	}

	l, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if cacheNegative && errx.KindOf(err) == errx.NotFound {
			if cerr := s.cache.PutNegative(ctx, code); cerr != nil {
				s.logger.WarnContext(ctx, "negative cache write failed",
					"code", code,
					"error", cerr.Error(),
				)
			}
		}
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	s.cachePut(ctx, l)
	return l, nil
}

// recordVisit runs the atomic increment-and-touch on a context detached
// from the request, then refreshes the cache with the updated record.
func (s *service) recordVisit(ctx context.Context, code string) {
	if s.onVisitDone != nil {
		defer s.onVisitDone()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), visitTimeout)
	defer cancel()

	updated, err := s.store.IncrementVisit(ctx, code)
	if err != nil {
		// A concurrent sweep or delete may have removed the link; that
		// outcome is acceptable and only worth a log line.
		s.logger.WarnContext(ctx, "visit increment failed",
			"code", code,
			"error", err.Error(),
		)
		return
	}

	s.cachePut(ctx, updated)
}

func (s *service) cachePut(ctx context.Context, l Link) {
	if err := s.cache.Put(ctx, l); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			"code", l.Code,
			"error", err.Error(),
		)
	}
}

func (s *service) cacheInvalidate(ctx context.Context, code, originalURL string) {
	if err := s.cache.Invalidate(ctx, code, originalURL); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed",
			"code", code,
			"error", err.Error(),
		)
	}
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
