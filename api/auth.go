package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	// Token is the raw bearer, forwarded to the profile backend.
	Token string
}

// Auth validates incoming JWT tokens.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string

	secret      []byte
	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth validates RS256 tokens against the JWKS. A non-positive cacheTTL
// disables the per-kid key cache.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string, cacheTTL time.Duration) *Auth {
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: cacheTTL,
	}
}

// NewSharedSecretAuth validates HS256 tokens signed with secret. It is meant
// for local runs and tests.
func NewSharedSecretAuth(secret []byte, audience, issuer string) *Auth {
	if len(secret) == 0 {
		panic("api.NewSharedSecretAuth: empty secret")
	}
	return &Auth{
		Audience: audience,
		Issuer:   issuer,
		secret:   secret,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Identify extracts the caller from an Authorization header value.
func (a *Auth) Identify(h string) (Identity, error) {
	if h == "" {
		return Identity{}, errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return Identity{}, err
	}
	userID, err := a.UserIDFromBearer(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Token: string(token)}, nil
}

// UserIDFromBearer extracts the user identifier from a bearer token presented as raw bytes.
func (a *Auth) UserIDFromBearer(token []byte) (string, error) {
	if len(token) == 0 {
		return "", errBadAuthorization
	}

	parsedToken, err := a.parser.Parse(readOnlyString(token), a.keyFunc)
	if err != nil {
		return "", err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return "", errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) keyFunc(t *jwt.Token) (any, error) {
	if a.secret != nil {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}
	return a.keyForToken(t)
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
