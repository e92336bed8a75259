package link

import "errors"

// Sentinel errors surfaced inside errx wrappers so callers can branch on
// the specific failure as well as the errx kind.
var (
	ErrInvalidURL          = errors.New("invalid original url")
	ErrInvalidAlias        = errors.New("invalid custom alias")
	ErrAliasTaken          = errors.New("alias is already taken")
	ErrGenerationExhausted = errors.New("could not generate a unique code after retries")
	ErrExpired             = errors.New("link has expired")
	ErrOwnerRequired       = errors.New("anonymous link creation is disabled")
)
