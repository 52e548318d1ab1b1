package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is the iss claim of every token this service signs
	Issuer = "outstaff"

	// SessionTTL is the lifetime of a login token
	SessionTTL = 24 * time.Hour

	// RememberMeTTL is the lifetime of a login token issued with remember_me
	RememberMeTTL = 30 * 24 * time.Hour

	// MinSecretLength is the shortest signing secret accepted outside dev mode
	MinSecretLength = 32
)

// ErrInvalidToken wraps every reason a bearer token is refused
var ErrInvalidToken = errors.New("invalid token")

var (
	// jwtSecret holds the validated JWT secret
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims represents the JWT claims structure
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// isDevMode mirrors the server's dev switch without importing config
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	return devMode == "true" || devMode == "1" || os.Getenv("GIN_MODE") == "debug"
}

// ValidateJWTSecret loads OUTSTAFF_JWT_SECRET once. Outside dev mode a missing
// or short secret is fatal. In dev mode a random secret is generated instead,
// so sessions do not survive a restart. Call it at startup.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("OUTSTAFF_JWT_SECRET")
		dev := isDevMode()

		switch {
		case secret == "" && dev:
			buf := make([]byte, MinSecretLength)
			if _, err := rand.Read(buf); err != nil {
				jwtSecretErr = fmt.Errorf("failed to generate development JWT secret: %w", err)
				return
			}
			secret = hex.EncodeToString(buf)
			slog.Warn("OUTSTAFF_JWT_SECRET not set, using auto-generated secret for development")
		case secret == "":
			jwtSecretErr = errors.New("OUTSTAFF_JWT_SECRET is required outside dev mode; generate one with: openssl rand -hex 32")
			return
		case len(secret) < MinSecretLength && dev:
			slog.Warn("OUTSTAFF_JWT_SECRET is shorter than recommended", "min_length", MinSecretLength)
		case len(secret) < MinSecretLength:
			jwtSecretErr = fmt.Errorf("OUTSTAFF_JWT_SECRET must be at least %d characters", MinSecretLength)
			return
		}
		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret retrieves the validated JWT secret.
// Panics if ValidateJWTSecret() hasn't been called or failed.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// SessionDuration returns the token lifetime for a login
func SessionDuration(rememberMe bool) time.Duration {
	if rememberMe {
		return RememberMeTTL
	}
	return SessionTTL
}

// GenerateJWT creates a JWT token for an authenticated user
func GenerateJWT(userID int64, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = SessionTTL
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(GetJWTSecret()))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateJWT parses tokenString and returns its claims. Only HS256 tokens
// issued by this service with an expiry are accepted.
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := []byte(GetJWTSecret())

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: token carries no user", ErrInvalidToken)
	}
	return claims, nil
}
