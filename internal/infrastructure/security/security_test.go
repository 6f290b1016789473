package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("jux7g")
	require.NoError(t, err)
	assert.NotEqual(t, "jux7g", hash)

	assert.True(t, h.Verify(hash, "jux7g"))
	assert.False(t, h.Verify(hash, "jux7G"))
	assert.False(t, h.Verify("not-a-hash", "jux7g"))
}

func TestBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer := NewJWTIssuer("test-secret", "gsb-frais", time.Hour)
	identity := &entity.Identity{ID: "a131", LastName: "Villechalane", FirstName: "Louis", Role: entity.RoleVisitor}

	token, expiresAt, err := issuer.Issue(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestJWTIssuer_Rejects(t *testing.T) {
	issuer := NewJWTIssuer("test-secret", "gsb-frais", time.Hour)
	identity := &entity.Identity{ID: "c001", Role: entity.RoleAccountant}
	token, _, err := issuer.Issue(identity)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTIssuer("other", "gsb-frais", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewJWTIssuer("test-secret", "someone-else", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTIssuer("test-secret", "gsb-frais", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := &Claims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "x",
				Issuer:    "gsb-frais",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
