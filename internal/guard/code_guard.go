// Package guard enforces single use of OAuth authorization codes across
// concurrent handler instances. The check lives in shared storage because an
// in-process set cannot see claims made by other instances.
package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/crosscast/crosscast/internal/repository"
)

// FailurePolicy decides what happens when the guard store itself fails for a
// reason other than a duplicate, e.g. the table is missing. It is a named
// object so the trade-off is visible and testable on its own.
type FailurePolicy interface {
	// AllowClaim reports whether the exchange may proceed despite the error.
	AllowClaim(err error) bool
	Name() string
}

// AllowOnGuardError trades a window of duplicate-exchange risk for
// availability: an unreachable guard store does not block sign-in.
type AllowOnGuardError struct{}

func (AllowOnGuardError) AllowClaim(err error) bool { return true }
func (AllowOnGuardError) Name() string              { return "allow-on-guard-error" }

// DenyOnGuardError refuses the exchange whenever the guard store cannot
// answer.
type DenyOnGuardError struct{}

func (DenyOnGuardError) AllowClaim(err error) bool { return false }
func (DenyOnGuardError) Name() string              { return "deny-on-guard-error" }

type CodeGuard struct {
	repo   repository.UsedCodeRepository
	policy FailurePolicy
}

func NewCodeGuard(repo repository.UsedCodeRepository, policy FailurePolicy) *CodeGuard {
	if policy == nil {
		policy = AllowOnGuardError{}
	}
	return &CodeGuard{repo: repo, policy: policy}
}

// Claim attempts to take ownership of an authorization code. It returns
// fresh=true when this caller is the first to claim the code and may exchange
// it, and fresh=false when the code was already used. Only the SHA-256 digest
// of the code is persisted.
func (g *CodeGuard) Claim(ctx context.Context, code string) (fresh bool, err error) {
	sum := sha256.Sum256([]byte(code))
	codeHash := hex.EncodeToString(sum[:])

	err = g.repo.Insert(ctx, codeHash)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrCodeAlreadyUsed) {
		return false, nil
	}

	if g.policy.AllowClaim(err) {
		slog.Info("code guard unavailable, allowing exchange", "policy", g.policy.Name(), "error", err.Error())
		return true, nil
	}
	slog.Info("code guard unavailable, refusing exchange", "policy", g.policy.Name(), "error", err.Error())
	return false, err
}
