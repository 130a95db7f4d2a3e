package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/gommon/random"
)

// IdentityRegistry is the identity collaborator consulted during tenant-code
// resolution. It answers "has this phone been issued a code before" and
// "is this code taken".
type IdentityRegistry interface {
	CodeByPhone(ctx context.Context, phone string) (string, error)
	CodeExists(ctx context.Context, tenantCode string) (bool, error)
}

// TenantCodeResolver yields the stable opaque code used for cross-store joins.
type TenantCodeResolver interface {
	Resolve(ctx context.Context, phone string) (string, error)
}

const (
	codePrefix = "PG"

	// Rejection sampling is bounded: a fixed number of draws in the narrow
	// keyspace, then the same number in a wider one before giving up.
	codeAttempts   = 8
	shortSuffixLen = 4
	wideSuffixLen  = 8
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a unique tenant code")

type tenantCodeService struct {
	identity IdentityRegistry
	suffix   func(length uint8) string
}

func NewTenantCodeService(identity IdentityRegistry) TenantCodeResolver {
	return &tenantCodeService{
		identity: identity,
		suffix: func(length uint8) string {
			return random.String(length, random.Uppercase, random.Numeric)
		},
	}
}

// Resolve reuses the code previously issued to this phone when one exists,
// otherwise draws random suffixes until an unused code is found.
func (s *tenantCodeService) Resolve(ctx context.Context, phone string) (string, error) {
	existing, err := s.identity.CodeByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("identity lookup by phone failed: %w", err)
	}
	if existing != "" {
		return existing, nil
	}

	for _, length := range []uint8{shortSuffixLen, wideSuffixLen} {
		for attempt := 0; attempt < codeAttempts; attempt++ {
			code := fmt.Sprintf("%s-%s", codePrefix, s.suffix(length))
			taken, err := s.identity.CodeExists(ctx, code)
			if err != nil {
				return "", fmt.Errorf("identity lookup by code failed: %w", err)
			}
			if !taken {
				return code, nil
			}
		}
	}

	return "", ErrCodeSpaceExhausted
}
