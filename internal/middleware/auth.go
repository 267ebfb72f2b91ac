// file: internal/middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"promptvault/internal/config"
	"promptvault/internal/contextutils"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// developmentSecret signs tokens when JWT_SECRET is unset outside production.
const developmentSecret = "promptvault-development-secret"

// Authenticator verifies HS256 bearer tokens whose subject is a numeric user id.
type Authenticator struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	builder *response.Builder
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator from auth configuration.
func NewAuthenticator(cfg config.AuthConfig, builder *response.Builder, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using development signing key")
		secret = developmentSecret
	}
	return &Authenticator{
		secret:  []byte(secret),
		issuer:  cfg.JWTIssuer,
		ttl:     cfg.TokenTTL,
		builder: builder,
		logger:  logger,
		now:     time.Now,
	}
}

// IssueToken signs a token for userID valid for the configured TTL.
func (a *Authenticator) IssueToken(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken validates a token and returns its user id.
func (a *Authenticator) ParseToken(tokenString string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return userID, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id in the request context. Websocket upgrades may pass the token
// as the access_token query parameter since browsers cannot set headers there.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			a.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
			return
		}

		userID, err := a.ParseToken(tokenString)
		if err != nil {
			contextutils.Logger(r.Context(), a.logger).Info("Rejected bearer token", zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				a.builder.WriteError(w, r, services.NewUnauthorizedError("token expired"))
				return
			}
			a.builder.WriteError(w, r, services.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := contextutils.WithUserID(r.Context(), userID)
		ctx = contextutils.WithLogger(ctx, contextutils.Logger(ctx, a.logger).With(zap.Int64("user_id", userID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
