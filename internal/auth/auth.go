package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"trivia-game-service/internal/domain"
)

// FacilitatorStore persists facilitator accounts.
type FacilitatorStore interface {
	CreateFacilitator(ctx context.Context, username, passwordHash string) (domain.Facilitator, error)
	GetFacilitatorByUsername(ctx context.Context, username string) (domain.Facilitator, error)
	GetFacilitator(ctx context.Context, id int64) (domain.Facilitator, error)
}

// DefaultTokenTTL matches the original session length for facilitators.
const DefaultTokenTTL = 8 * time.Hour

// Service issues and verifies facilitator credentials: bcrypt password
// hashes at rest, HS256 bearer tokens on the wire.
type Service struct {
	store  FacilitatorStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store FacilitatorStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register creates a facilitator account with a hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (domain.Facilitator, error) {
	if username == "" || password == "" {
		return domain.Facilitator{}, domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Facilitator{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateFacilitator(ctx, username, string(hash))
}

// Login verifies credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	facilitator, err := s.store.GetFacilitatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrFacilitatorNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(facilitator.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(facilitator.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses a bearer token and returns the facilitator ID it names.
func (s *Service) Verify(ctx context.Context, token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, domain.ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, domain.ErrInvalidCredentials
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidCredentials
	}

	// The token subject must still exist.
	if _, err := s.store.GetFacilitator(ctx, id); err != nil {
		return 0, domain.ErrInvalidCredentials
	}
	return id, nil
}
