// Package eclasstoken generates API signing secrets and mints bearer tokens
// for the e-class HTTP API.
package eclasstoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	httpapi "github.com/eclassroom/eclass/internal/services/eclass/api/http"
)

// Config holds configuration for secret generation and token minting.
type Config struct {
	Bytes   int
	Secret  string
	Issuer  string
	Subject string
	Roles   string
	TTL     time.Duration
}

// ParseConfig parses flags into a Config. Without -sub the tool generates a
// new signing secret.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Bytes:  32,
		Secret: os.Getenv("ECLASS_JWT_SECRET"),
		Issuer: envOr("ECLASS_JWT_ISSUER", "eclass"),
		TTL:    24 * time.Hour,
	}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes for a new secret (default: 32)")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "signing secret (default: $ECLASS_JWT_SECRET)")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "token issuer")
	fs.StringVar(&cfg.Subject, "sub", cfg.Subject, "chat user id to mint a token for")
	fs.StringVar(&cfg.Roles, "roles", cfg.Roles, "comma-separated chat roles carried by the token")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes either a fresh secret or a signed token to out.
func Run(cfg Config, out io.Writer, reader io.Reader, now time.Time) error {
	if out == nil {
		return errors.New("output is required")
	}
	if strings.TrimSpace(cfg.Subject) == "" {
		return generateSecret(cfg, out, reader)
	}
	return mintToken(cfg, out, now)
}

func generateSecret(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if reader == nil {
		reader = rand.Reader
	}
	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "ECLASS_JWT_SECRET=%s\n", hex.EncodeToString(buf))
	return err
}

func mintToken(cfg Config, out io.Writer, now time.Time) error {
	if strings.TrimSpace(cfg.Secret) == "" {
		return errors.New("secret is required to mint a token")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now()
	}
	claims := httpapi.Claims{
		Roles: splitRoles(cfg.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(cfg.Subject),
			Issuer:    strings.TrimSpace(cfg.Issuer),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, signed)
	return err
}

func splitRoles(raw string) []string {
	var roles []string
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
