package utils

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signHS256(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func TestExtractToken(t *testing.T) {
	require.Equal(t, "abc", ExtractToken("Bearer abc", "cookie"))
	require.Equal(t, "cookie", ExtractToken("Basic abc", "cookie"))
	require.Equal(t, "cookie", ExtractToken("", "cookie"))
	require.Equal(t, "", ExtractToken("Bearer ", ""))
}

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier("secret", "")

	sub, err := v.Subject(signHS256(t, "secret", validClaims("user-1")))
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	_, err = v.Subject("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Subject(signHS256(t, "other", validClaims("user-1")))
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.Subject(signHS256(t, "secret", expired))
	require.ErrorIs(t, err, ErrInvalidToken)

	noExp := validClaims("user-1")
	noExp.ExpiresAt = nil
	_, err = v.Subject(signHS256(t, "secret", noExp))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Subject(signHS256(t, "secret", validClaims("")))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACVerifierAudience(t *testing.T) {
	v := NewHMACVerifier("secret", "stampxl")

	claims := validClaims("user-1")
	_, err := v.Subject(signHS256(t, "secret", claims))
	require.ErrorIs(t, err, ErrInvalidToken)

	claims.Audience = jwt.ClaimStrings{"stampxl"}
	sub, err := v.Subject(signHS256(t, "secret", claims))
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)
}

func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string) (*httptest.Server, *atomic.Int32, *atomic.Bool) {
	t.Helper()
	var fetches atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[{"kty":"RSA","alg":"RS256","use":"sig","kid":"` + kid + `","n":"` +
			base64.RawURLEncoding.EncodeToString(key.N.Bytes()) + `","e":"` +
			base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()) + `"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches, &failing
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("hanko-user"))
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, fetches, _ := jwksServer(t, key, "k1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := NewJWKSVerifier(ctx, srv.URL, "", srv.Client(), zap.NewNop())
	require.NoError(t, err)

	sub, err := v.Subject(signRS256(t, key, "k1"))
	require.NoError(t, err)
	require.Equal(t, "hanko-user", sub)

	// known keys are served from the cache
	before := fetches.Load()
	_, err = v.Subject(signRS256(t, key, "k1"))
	require.NoError(t, err)
	require.Equal(t, before, fetches.Load())

	_, err = v.Subject(signRS256(t, key, "k2"))
	require.ErrorIs(t, err, ErrInvalidToken)

	// repeated unknown kids do not hammer the key server
	before = fetches.Load()
	_, err = v.Subject(signRS256(t, key, "k2"))
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, before, fetches.Load())

	// HS256 tokens are refused by an RS256 verifier
	_, err = v.Subject(signHS256(t, "secret", validClaims("hanko-user")))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWKSVerifierRecoversFromFailedFirstFetch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, _, failing := jwksServer(t, key, "k1")
	failing.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := NewJWKSVerifier(ctx, srv.URL, "", srv.Client(), zap.NewNop())
	require.NoError(t, err)

	failing.Store(false)
	sub, err := v.Subject(signRS256(t, key, "k1"))
	require.NoError(t, err)
	require.Equal(t, "hanko-user", sub)
}
