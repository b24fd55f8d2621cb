package apikey

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"root/internal/apperr"
	"root/internal/metrics"
	"root/internal/store"
)

// CredentialStore persists credential hashes keyed by member.
type CredentialStore interface {
	Upsert(ctx context.Context, memberID int32, hash string) error
	Hash(ctx context.Context, memberID int32) (string, error)
}

// IdentityVerifier checks an identity token with the external provider.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (bool, error)
}

// Manager issues and verifies API keys.
type Manager struct {
	store    CredentialStore
	verifier IdentityVerifier
	cost     int
	rand     io.Reader
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewManager creates a manager hashing with the given bcrypt cost. m may be nil.
func NewManager(cs CredentialStore, verifier IdentityVerifier, cost int, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: cs, verifier: verifier, cost: cost, rand: rand.Reader, logger: logger, metrics: m}
}

// Issue validates identityToken with the provider and, when accepted, creates a new
// credential for memberID. Any earlier credential of that member stops verifying.
// The plaintext is returned once and never stored.
func (m *Manager) Issue(ctx context.Context, identityToken string, memberID int32) (string, error) {
	const op = "issueApiKey"
	if identityToken == "" {
		return "", apperr.Validation(op, "identity token required")
	}
	if memberID <= 0 {
		return "", apperr.Validation(op, "member_id required")
	}

	valid, err := m.verifier.VerifyToken(ctx, identityToken)
	if err != nil {
		m.logger.Warn("identity provider check failed", zap.Int32("member_id", memberID), zap.Error(err))
		return "", apperr.Upstream(op, err)
	}
	if !valid {
		return "", apperr.Auth(op, "identity token rejected")
	}

	credential, err := Generate(m.rand, memberID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), m.cost)
	if err != nil {
		return "", fmt.Errorf("%s: hash credential: %w", op, err)
	}
	if err := m.store.Upsert(ctx, memberID, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.Validation(op, "member not found")
		}
		m.logger.Error("store credential failed", zap.Int32("member_id", memberID), zap.Error(err))
		return "", apperr.Storage(op, err)
	}

	m.logger.Info("api key issued", zap.Int32("member_id", memberID))
	m.metrics.KeyIssued()
	return credential, nil
}

// Verify reports whether credential is the member's current key and returns that
// member. Every failure, including store errors, yields false.
func (m *Manager) Verify(ctx context.Context, credential string) (int32, bool) {
	memberID, ok := m.verify(ctx, credential)
	m.metrics.KeyVerified(ok)
	return memberID, ok
}

func (m *Manager) verify(ctx context.Context, credential string) (int32, bool) {
	memberID, ok := MemberOf(credential)
	if !ok {
		return 0, false
	}
	hash, err := m.store.Hash(ctx, memberID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("credential lookup failed", zap.Int32("member_id", memberID), zap.Error(err))
		}
		return 0, false
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)) != nil {
		return 0, false
	}
	return memberID, true
}
