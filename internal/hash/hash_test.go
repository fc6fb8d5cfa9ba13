package hash_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirokiuemura2/GDGTeamF1/internal/hash"
)

func TestHashAndVerify(t *testing.T) {
	ctx := context.Background()
	h := hash.New(2)

	digest, err := h.Hash(ctx, "secret123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(digest, "$argon2id$"))

	require.True(t, h.Verify(ctx, "secret123", digest))
	require.False(t, h.Verify(ctx, "wrong", digest))
}

func TestHashIsSalted(t *testing.T) {
	ctx := context.Background()
	h := hash.New(2)

	first, err := h.Hash(ctx, "secret123")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "secret123")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, h.Verify(ctx, "secret123", first))
	require.True(t, h.Verify(ctx, "secret123", second))
}

func TestVerifyMalformedDigest(t *testing.T) {
	ctx := context.Background()
	h := hash.New(1)

	for _, digest := range []string{
		"",
		"plainly not a digest",
		"$argon2id$v=19$m=65536,t=1,p=4$short",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	} {
		require.False(t, h.Verify(ctx, "secret123", digest), "digest %q", digest)
	}
}

func TestHashCanceledContext(t *testing.T) {
	h := hash.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "secret123")
	require.Error(t, err)
}
