package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crosscast/crosscast/internal/repository"
)

type fakeCodeRepo struct {
	insertErr error
	hashes    []string
}

func (f *fakeCodeRepo) Insert(ctx context.Context, codeHash string) error {
	f.hashes = append(f.hashes, codeHash)
	return f.insertErr
}

func TestClaimFreshCode(t *testing.T) {
	repo := &fakeCodeRepo{}
	g := NewCodeGuard(repo, nil)

	fresh, err := g.Claim(context.Background(), "auth-code-1")
	require.NoError(t, err)
	require.True(t, fresh)

	// Only the digest reaches storage, never the raw code.
	require.Len(t, repo.hashes, 1)
	require.Len(t, repo.hashes[0], 64)
	require.NotContains(t, repo.hashes[0], "auth-code-1")
}

func TestClaimDuplicateCode(t *testing.T) {
	repo := &fakeCodeRepo{insertErr: repository.ErrCodeAlreadyUsed}
	g := NewCodeGuard(repo, nil)

	fresh, err := g.Claim(context.Background(), "auth-code-1")
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestClaimGuardErrorAllowPolicy(t *testing.T) {
	repo := &fakeCodeRepo{insertErr: errors.New("relation does not exist")}
	g := NewCodeGuard(repo, AllowOnGuardError{})

	fresh, err := g.Claim(context.Background(), "auth-code-1")
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestClaimGuardErrorDenyPolicy(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &fakeCodeRepo{insertErr: storeErr}
	g := NewCodeGuard(repo, DenyOnGuardError{})

	fresh, err := g.Claim(context.Background(), "auth-code-1")
	require.ErrorIs(t, err, storeErr)
	require.False(t, fresh)
}

func TestSameCodeSameHash(t *testing.T) {
	repo := &fakeCodeRepo{}
	g := NewCodeGuard(repo, nil)

	_, err := g.Claim(context.Background(), "auth-code-1")
	require.NoError(t, err)
	_, err = g.Claim(context.Background(), "auth-code-1")
	require.NoError(t, err)

	require.Equal(t, repo.hashes[0], repo.hashes[1])
}
