package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
	RoleDriver   Role = "driver"
)

var knownRoles = []Role{RoleCustomer, RoleStaff, RoleAdmin, RoleDriver}

func (r Role) Valid() bool {
	return slices.Contains(knownRoles, r)
}

type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role,omitempty"`
}

// Identity is the authenticated owner of a session or REST call.
type Identity struct {
	Id   int64
	Role Role
}

func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleStaff
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, audience string, apiKeys []string) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(audience),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) AuthenticateJWT(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing token"))
	}

	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	userId, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userId <= 0 {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("subject claim must be a user id"))
	}

	if !claims.Role.Valid() {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid role claim"))
	}

	return &Identity{
		Id:   userId,
		Role: claims.Role,
	}, nil
}

// AuthenticateAPIKey accepts the keys used by the ordering backend to report
// order events. The resulting identity has no user id.
func (a *Authenticator) AuthenticateAPIKey(apiKey string) (*Identity, error) {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return &Identity{
				Role: RoleAdmin,
			}, nil
		}
	}

	return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
