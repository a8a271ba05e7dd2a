package evidence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"velvet/internal/claims/models"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/sentinel"
	"velvet/pkg/secrets"
)

const (
	codeKeyPrefix = "evidence:phone:code:"

	// DefaultCodeTTL bounds the window between requesting a code and
	// confirming it.
	DefaultCodeTTL = 10 * time.Minute

	codeDigits = 6
)

// Registry registers confirmed evidence references. Both evidence stores
// satisfy it.
type Registry interface {
	Register(ctx context.Context, ref string, kind models.EvidenceKind) error
}

// CodeStore holds pending verification codes, hashed, keyed by phone number.
// A code is single-use: Take removes it.
type CodeStore interface {
	Put(ctx context.Context, phone, codeHash string, ttl time.Duration) error
	Take(ctx context.Context, phone string) (string, error)
}

// PhoneService issues and confirms phone verification codes. A confirmed
// code yields a phone-token evidence reference a claim can carry as its
// identity path.
type PhoneService struct {
	codes    CodeStore
	registry Registry
	sender   CodeSender
	logger   *slog.Logger
	ttl      time.Duration
}

// CodeSender delivers a code to a phone number. SMS transport is a
// collaborator; tests use a capture fake.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

type PhoneOption func(*PhoneService)

func WithPhoneLogger(logger *slog.Logger) PhoneOption {
	return func(s *PhoneService) { s.logger = logger }
}

func WithCodeTTL(ttl time.Duration) PhoneOption {
	return func(s *PhoneService) { s.ttl = ttl }
}

func NewPhoneService(codes CodeStore, registry Registry, sender CodeSender, opts ...PhoneOption) *PhoneService {
	s := &PhoneService{
		codes:    codes,
		registry: registry,
		sender:   sender,
		ttl:      DefaultCodeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a fresh code to the phone number. A second request
// overwrites the first; only the latest code confirms.
func (s *PhoneService) Request(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return dErrors.New(dErrors.CodeBadRequest, "phone number is required")
	}

	code, err := secrets.GenerateCode(codeDigits)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash verification code")
	}
	if err := s.codes.Put(ctx, phone, hash, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification code")
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send verification code")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "phone verification code issued", "phone", phone)
	}
	return nil
}

// Confirm checks the code and, on success, mints a phone-token evidence
// reference. The code is consumed either way once read.
func (s *PhoneService) Confirm(ctx context.Context, phone, code string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "phone number and code are required")
	}

	hash, err := s.codes.Take(ctx, phone)
	if err != nil {
		if sentinelNotFoundOrExpired(err) {
			return "", dErrors.New(dErrors.CodeValidation, "no pending verification for this number")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification code")
	}
	if err := secrets.Verify(code, hash); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "verification code does not match")
	}

	ref, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint evidence reference")
	}
	ref = "phone-" + ref
	if err := s.registry.Register(ctx, ref, models.EvidenceKindPhoneToken); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register evidence reference")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "phone verification confirmed", "phone", phone)
	}
	return ref, nil
}

func sentinelNotFoundOrExpired(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired)
}

// RedisCodeStore keeps pending codes in Redis with a TTL.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Put(ctx context.Context, phone, codeHash string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKeyPrefix+phone, codeHash, ttl).Err()
}

func (s *RedisCodeStore) Take(ctx context.Context, phone string) (string, error) {
	hash, err := s.client.GetDel(ctx, codeKeyPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// MemoryCodeStore backs unit tests and dev mode.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryCode
	now   func() time.Time
}

type memoryCode struct {
	hash    string
	expires time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		codes: make(map[string]memoryCode),
		now:   time.Now,
	}
}

func (s *MemoryCodeStore) Put(_ context.Context, phone, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = memoryCode{hash: codeHash, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Take(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	delete(s.codes, phone)
	if s.now().After(code.expires) {
		return "", sentinel.ErrExpired
	}
	return code.hash, nil
}
