package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/utils"
)

// AuthConfig holds the HS256 token settings.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJWT returns middleware that rejects requests without a valid bearer token and
// stores the validated claims in the request context.
func NewJWT(cfg AuthConfig) (func(http.Handler) http.Handler, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}
	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the JWT validator: %w", err)
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(authErrorHandler),
	)
	return mw.CheckJWT, nil
}

func authErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("JWT authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
	code := models.ErrorCodeUnauthorized
	message := "invalid token"
	if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
		message = "authorization header missing"
	}
	utils.RespondWithError(w, models.NewAPIError(code, message, nil, http.StatusUnauthorized))
}

// Subject returns the subject of the validated token, or "anonymous" when auth is off.
func Subject(r *http.Request) string {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return "anonymous"
	}
	return claims.RegisteredClaims.Subject
}
