package httpapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

const (
	actorKey = "eclass.actor"
	rolesKey = "eclass.roles"
)

// Claims are the JWT claims accepted by the API. The subject is the chat
// user id.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// authenticate verifies the bearer token and stores the caller as an actor.
func (s *server) authenticate(c *fiber.Ctx) error {
	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnauthorized, err.Error(), err)
	}

	claims := &Claims{}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, options...); err != nil {
		return apperrors.Wrap(apperrors.CodeUnauthorized, "invalid token", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return apperrors.New(apperrors.CodeUnauthorized, "token subject is required")
	}

	c.Locals(actorKey, domain.Actor{
		UserID: claims.Subject,
		Staff:  slices.Contains(claims.Roles, s.cfg.StaffRole),
	})
	c.Locals(rolesKey, claims.Roles)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("authorization header must be a bearer token")
	}
	return strings.TrimSpace(token), nil
}

func actorFrom(c *fiber.Ctx) domain.Actor {
	actor, _ := c.Locals(actorKey).(domain.Actor)
	return actor
}

// canTeach reports whether the caller may create e-classes.
func (s *server) canTeach(c *fiber.Ctx) bool {
	if actorFrom(c).Staff {
		return true
	}
	roles, _ := c.Locals(rolesKey).([]string)
	return slices.Contains(roles, s.cfg.ProfessorRole)
}

func requireStaff(c *fiber.Ctx) error {
	if !actorFrom(c).Staff {
		return apperrors.New(apperrors.CodeForbidden, "staff role required")
	}
	return nil
}
