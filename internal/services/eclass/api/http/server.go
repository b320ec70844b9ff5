// Package httpapi exposes the e-class lifecycle over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	"github.com/eclassroom/eclass/internal/platform/timeouts"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

const (
	defaultStaffRole     = "staff"
	defaultProfessorRole = "eprof"
)

// Service is the lifecycle surface served by the API.
type Service interface {
	Create(ctx context.Context, input domain.CreateInput) (domain.Eclass, error)
	Get(ctx context.Context, classID string) (domain.Eclass, error)
	List(ctx context.Context, filter string, pageSize int, pageToken string) (domain.Page, error)
	ListUpcoming(ctx context.Context, year domain.SchoolYear, window time.Duration) ([]domain.Eclass, error)
	Update(ctx context.Context, input domain.UpdateInput) (domain.Eclass, error)
	Start(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)
	Finish(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)
	Cancel(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)
	AddRecordLink(ctx context.Context, actor domain.Actor, classID, link string, silent bool) (domain.Eclass, error)
	RemoveRecordLink(ctx context.Context, actor domain.Actor, classID, link string) (domain.Eclass, error)
	SubscribeMember(ctx context.Context, classID, userID string) error
	UnsubscribeMember(ctx context.Context, classID, userID string) error
	RemindClass(ctx context.Context, classID string) (bool, error)
}

// Messages localizes API output.
type Messages interface {
	RejectionMessage(code apperrors.Code) string
	UpcomingDigest(year domain.SchoolYear, eclasses []domain.Eclass) string
}

// Config controls token verification and role names.
type Config struct {
	Secret        []byte
	Issuer        string
	StaffRole     string
	ProfessorRole string
	// Clock defaults to time.Now and drives token expiry checks.
	Clock func() time.Time
}

type server struct {
	svc      Service
	messages Messages
	cfg      Config
	validate *validator.Validate
	clock    func() time.Time
}

// New builds the fiber application serving the API.
func New(svc Service, messages Messages, cfg Config) (*fiber.App, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if messages == nil {
		return nil, errors.New("messages are required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.StaffRole == "" {
		cfg.StaffRole = defaultStaffRole
	}
	if cfg.ProfessorRole == "" {
		cfg.ProfessorRole = defaultProfessorRole
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &server{
		svc:      svc,
		messages: messages,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
	}

	app := fiber.New(fiber.Config{
		AppName:               "eclass",
		DisableStartupMessage: true,
		ReadTimeout:           timeouts.Request,
		WriteTimeout:          timeouts.Request,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.requestContext)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	v1 := app.Group("/v1", s.authenticate)
	v1.Post("/eclasses", s.create)
	v1.Get("/eclasses", s.list)
	v1.Get("/eclasses/upcoming", s.upcoming)
	v1.Get("/eclasses/:id", s.get)
	v1.Patch("/eclasses/:id", s.update)
	v1.Post("/eclasses/:id/start", s.transition(s.svc.Start))
	v1.Post("/eclasses/:id/finish", s.transition(s.svc.Finish))
	v1.Post("/eclasses/:id/cancel", s.transition(s.svc.Cancel))
	v1.Post("/eclasses/:id/record-links", s.addRecordLink)
	v1.Delete("/eclasses/:id/record-links", s.removeRecordLink)
	v1.Put("/eclasses/:id/subscription", s.subscribe)
	v1.Delete("/eclasses/:id/subscription", s.unsubscribe)
	v1.Post("/eclasses/:id/remind", s.remind)
	return app, nil
}

// requestContext bounds each request and logs its outcome.
func (s *server) requestContext(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Request)
	defer cancel()
	c.SetUserContext(ctx)

	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusOf(err)
	}
	log.Printf("[e-class:http] id=%v %s %s status=%d dur=%s",
		c.Locals(requestid.ConfigDefault.ContextKey), c.Method(), c.OriginalURL(), status, time.Since(start))
	return err
}

func (s *server) create(c *fiber.Ctx) error {
	if !s.canTeach(c) {
		return apperrors.New(apperrors.CodeForbidden, "professor role required")
	}
	var req createRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	actor := actorFrom(c)
	professorID := actor.UserID
	if req.ProfessorID != "" && req.ProfessorID != actor.UserID {
		if !actor.Staff {
			return apperrors.New(apperrors.CodeForbidden, "only staff may create e-classes for another professor")
		}
		professorID = req.ProfessorID
	}
	e, err := s.svc.Create(c.UserContext(), req.toInput(professorID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toResponse(e))
}

func (s *server) get(c *fiber.Ctx) error {
	e, err := s.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toResponse(e))
}

func (s *server) list(c *fiber.Ctx) error {
	pageSize := c.QueryInt("page_size", 0)
	if pageSize < 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "page_size must not be negative")
	}
	page, err := s.svc.List(c.UserContext(), c.Query("filter"), pageSize, c.Query("page_token"))
	if err != nil {
		return err
	}
	return c.JSON(listResponse{Eclasses: toResponses(page.Eclasses), NextPageToken: page.NextPageToken})
}

func (s *server) upcoming(c *fiber.Ctx) error {
	year := domain.SchoolYear(strings.ToUpper(c.Query("school_year")))
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("invalid window %q", raw))
		}
		window = parsed
	}
	eclasses, err := s.svc.ListUpcoming(c.UserContext(), year, window)
	if err != nil {
		return err
	}
	return c.JSON(upcomingResponse{
		SchoolYear: string(year),
		Eclasses:   toResponses(eclasses),
		Digest:     s.messages.UpcomingDigest(year, eclasses),
	})
}

func (s *server) update(c *fiber.Ctx) error {
	var req updateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	e, err := s.svc.Update(c.UserContext(), req.toInput(c.Params("id"), actorFrom(c)))
	if err != nil {
		return err
	}
	return c.JSON(toResponse(e))
}

type transitionFunc func(ctx context.Context, actor domain.Actor, classID string) (domain.Eclass, error)

func (s *server) transition(fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := fn(c.UserContext(), actorFrom(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toResponse(e))
	}
}

func (s *server) addRecordLink(c *fiber.Ctx) error {
	var req recordLinkRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	e, err := s.svc.AddRecordLink(c.UserContext(), actorFrom(c), c.Params("id"), req.Link, req.Silent)
	if err != nil {
		return err
	}
	return c.JSON(toResponse(e))
}

func (s *server) removeRecordLink(c *fiber.Ctx) error {
	link := c.Query("link")
	if link == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "link query parameter is required")
	}
	e, err := s.svc.RemoveRecordLink(c.UserContext(), actorFrom(c), c.Params("id"), link)
	if err != nil {
		return err
	}
	return c.JSON(toResponse(e))
}

func (s *server) subscribe(c *fiber.Ctx) error {
	if err := s.svc.SubscribeMember(c.UserContext(), c.Params("id"), actorFrom(c).UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) unsubscribe(c *fiber.Ctx) error {
	if err := s.svc.UnsubscribeMember(c.UserContext(), c.Params("id"), actorFrom(c).UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) remind(c *fiber.Ctx) error {
	if err := requireStaff(c); err != nil {
		return err
	}
	sent, err := s.svc.RemindClass(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"reminded": sent})
}

// bind decodes the JSON body into dst and validates it.
func (s *server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "malformed request body", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			joined := strings.Join(fields, ", ")
			return &apperrors.Error{
				Code:     apperrors.CodeInvalidInput,
				Message:  "invalid input: " + joined,
				Metadata: map[string]string{"Fields": joined},
				Cause:    err,
			}
		}
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid input", err)
	}
	return nil
}

// handleError renders every failure as {"error":{"code","message"}}.
func (s *server) handleError(c *fiber.Ctx, err error) error {
	detail := errorDetail{Code: string(apperrors.CodeUnknown)}
	status := statusOf(err)

	var fiberErr *fiber.Error
	switch {
	case domain.IsIntegrityFault(err):
		log.Printf("[e-class:http] integrity fault on %s %s: %v", c.Method(), c.OriginalURL(), err)
		detail.Code = string(apperrors.CodeIntegrityFault)
		detail.Message = s.messages.RejectionMessage(apperrors.CodeIntegrityFault)
	case errors.As(err, &fiberErr):
		detail.Code = strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(fiberErr.Code), " ", "_"))
		detail.Message = fiberErr.Message
	default:
		if code, ok := apperrors.CodeOf(err); ok {
			detail.Code = string(code)
			detail.Message = s.messages.RejectionMessage(code)
			var appErr *apperrors.Error
			if errors.As(err, &appErr) && len(appErr.Metadata) > 0 {
				detail.Details = appErr.Metadata
			}
		} else {
			log.Printf("[e-class:http] error: %s %s: %v", c.Method(), c.OriginalURL(), err)
			detail.Message = s.messages.RejectionMessage(apperrors.CodeUnknown)
		}
	}
	return c.Status(status).JSON(errorBody{Error: detail})
}

func statusOf(err error) int {
	if domain.IsIntegrityFault(err) {
		return fiber.StatusInternalServerError
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	if code, ok := apperrors.CodeOf(err); ok {
		return code.HTTPStatus()
	}
	return fiber.StatusInternalServerError
}
