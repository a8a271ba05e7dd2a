package evidence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"velvet/internal/claims/models"
	dErrors "velvet/pkg/domain-errors"
)

const (
	refKeyPrefix = "evidence:ref:"

	// DefaultRefTTL bounds how long an unclaimed evidence reference stays
	// resolvable. Claims submitted within the window pin their references
	// through the claim record itself.
	DefaultRefTTL = 24 * time.Hour
)

// RedisStore resolves evidence references from Redis. Upload pipelines and
// the phone verification flow register references here; the claim engine
// only checks existence and kind.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithRefTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    DefaultRefTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records a reference with its kind.
func (s *RedisStore) Register(ctx context.Context, ref string, kind models.EvidenceKind) error {
	return s.client.Set(ctx, refKeyPrefix+ref, string(kind), s.ttl).Err()
}

func (s *RedisStore) Exists(ctx context.Context, ref string) (bool, error) {
	n, err := s.client.Exists(ctx, refKeyPrefix+ref).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Kind(ctx context.Context, ref string) (models.EvidenceKind, error) {
	kind, err := s.client.Get(ctx, refKeyPrefix+ref).Result()
	if errors.Is(err, redis.Nil) {
		return "", dErrors.Newf(dErrors.CodeNotFound, "unknown evidence reference %q", ref)
	}
	if err != nil {
		return "", err
	}
	return models.EvidenceKind(kind), nil
}
