package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid token")
)

// SessionCookie is the cookie the identity widget stores its session JWT in.
const SessionCookie = "hanko"

// ExtractToken takes the JWT from an "Authorization: Bearer" header, falling
// back to the session cookie.
func ExtractToken(authorization, cookie string) string {
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
		return parts[1]
	}
	return cookie
}

// TokenVerifier validates session JWTs and yields their subject.
type TokenVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewHMACVerifier accepts HS256 tokens signed with secret.
func NewHMACVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		parser:  newParser([]string{"HS256"}, audience),
	}
}

// NewJWKSVerifier accepts RS256 tokens signed by a key published at jwksURL.
// The key set is refreshed hourly until ctx ends, and on demand when a token
// names an unknown kid (at most once per five minutes).
func NewJWKSVerifier(ctx context.Context, jwksURL, audience string, client *http.Client, log *zap.Logger) (*TokenVerifier, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("jwks url: %w", err)
	}
	storage, err := jwkset.NewStorageFromHTTP(u, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		Ctx:                       ctx,
		HTTPTimeout:               10 * time.Second,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Warn("jwks refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}
	keys, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: storage},
		RateLimitWaitMax:  time.Second,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(5*time.Minute), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("jwks client: %w", err)
	}
	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: keys})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}
	return &TokenVerifier{
		keyfunc: kf.Keyfunc,
		parser:  newParser([]string{"RS256"}, audience),
	}, nil
}

func newParser(methods []string, audience string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return jwt.NewParser(opts...)
}

// Subject verifies tokenStr and returns its "sub" claim.
func (v *TokenVerifier) Subject(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrMissingToken
	}
	var claims jwt.RegisteredClaims
	token, err := v.parser.ParseWithClaims(tokenStr, &claims, v.keyfunc)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	return claims.Subject, nil
}
