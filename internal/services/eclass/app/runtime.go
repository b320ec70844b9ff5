// Package app wires the e-class service: storage, chat bridge, lifecycle
// manager, scheduler, HTTP API and gRPC health endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/eclassroom/eclass/internal/platform/timeouts"
	httpapi "github.com/eclassroom/eclass/internal/services/eclass/api/http"
	"github.com/eclassroom/eclass/internal/services/eclass/directory"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/eclassroom/eclass/internal/services/eclass/gateway/bridge"
	"github.com/eclassroom/eclass/internal/services/eclass/render"
	"github.com/eclassroom/eclass/internal/services/eclass/scheduler"
	eclasspostgres "github.com/eclassroom/eclass/internal/services/eclass/storage/postgres"
	eclasssqlite "github.com/eclassroom/eclass/internal/services/eclass/storage/sqlite"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultHTTPPort   = 8095
	defaultHealthPort = 8096
	defaultDBPath     = "data/eclass.db"
	healthService     = "eclass.runtime"
)

// RuntimeConfig controls e-class startup and dependencies.
type RuntimeConfig struct {
	HTTPPort   int
	HealthPort int

	StorageDriver string
	DBPath        string
	PostgresDSN   string

	BridgeURL   string
	BridgeToken string

	JWTSecret     string
	JWTIssuer     string
	StaffRole     string
	ProfessorRole string

	Locale   string
	Timezone string

	HorizonMonths  int
	ReminderLead   time.Duration
	SubscribeEmoji string

	SchedulerEnabled  bool
	SchedulerInterval time.Duration

	AnnouncementChannels map[string]string
	AudienceRoles        map[string]string
	// UpcomingChannels holds the upcoming-classes board of each year.
	UpcomingChannels map[string]string
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.HTTPPort <= 0 {
		cfg.HTTPPort = defaultHTTPPort
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	return cfg
}

func (cfg RuntimeConfig) validate() error {
	if strings.TrimSpace(cfg.BridgeURL) == "" {
		return errors.New("bridge url is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.StorageDriver == DriverPostgres && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return errors.New("postgres dsn is required")
	}
	return nil
}

// storeCloser is a domain store that owns resources.
type storeCloser interface {
	domain.Store
	domain.BoardStore
	io.Closer
}

// openStore opens the configured storage adapter.
func openStore(cfg RuntimeConfig) (storeCloser, error) {
	switch cfg.StorageDriver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create eclass storage dir: %w", err)
			}
		}
		store, err := eclasssqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open eclass sqlite store: %w", err)
		}
		return store, nil
	case DriverPostgres:
		store, err := eclasspostgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open eclass postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Run starts the e-class runtime and blocks until ctx ends or a component fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return err
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	renderer, err := render.New(cfg.Locale, location)
	if err != nil {
		return err
	}
	dir, err := directory.New(cfg.AnnouncementChannels, cfg.AudienceRoles, cfg.UpcomingChannels)
	if err != nil {
		return fmt.Errorf("parse directory: %w", err)
	}
	for _, missing := range dir.Missing() {
		log.Printf("[e-class] warn: no %s configured", missing)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close eclass store: %v", closeErr)
		}
	}()

	client, err := bridge.Dial(ctx, cfg.BridgeURL, cfg.BridgeToken)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("close bridge: %v", closeErr)
		}
	}()

	manager, err := domain.NewManager(domain.Deps{
		Store:     store,
		Gateway:   client,
		Platform:  client,
		Directory: dir,
		Renderer:  renderer,
		Boards:    store,
	}, domain.Config{
		Horizon:        domain.Horizon{Months: cfg.HorizonMonths},
		ReminderLead:   cfg.ReminderLead,
		SubscribeEmoji: cfg.SubscribeEmoji,
	})
	if err != nil {
		return err
	}
	indexed, err := manager.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild announcement index: %w", err)
	}
	log.Printf("[e-class] indexed %d planned announcements", indexed)

	api, err := httpapi.New(manager, renderer, httpapi.Config{
		Secret:        []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
		StaffRole:     cfg.StaffRole,
		ProfessorRole: cfg.ProfessorRole,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	failed := make(chan error, 4)

	jobs := []backgroundJob{
		{name: "reactions", run: func(ctx context.Context) error {
			pumpReactions(ctx, client.Reactions(), manager)
			return nil
		}},
		{name: "bridge", run: func(ctx context.Context) error {
			select {
			case <-client.Done():
				return fmt.Errorf("disconnected: %w", client.Err())
			case <-ctx.Done():
				return nil
			}
		}},
	}
	if cfg.SchedulerEnabled {
		sched := scheduler.New(manager, scheduler.Config{
			Interval:     cfg.SchedulerInterval,
			ReminderLead: manager.Config().ReminderLead,
		}, nil)
		jobs = append(jobs, backgroundJob{name: "scheduler", run: sched.Run})
	}
	background := startBackground(runCtx, failed, jobs...)
	// Runs before the store and bridge are closed.
	defer func() {
		cancel()
		background.Wait()
	}()

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_SERVING)
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcErr
	}()

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	go func() {
		if err := api.Listen(httpAddr); err != nil {
			failed <- fmt.Errorf("http server: %w", err)
		}
	}()
	defer func() {
		if err := api.ShutdownWithTimeout(timeouts.Shutdown); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
	}()

	log.Printf("[e-class] api listening at %s, health at %v", httpAddr, healthListener.Addr())
	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return err
	}
}

// backgroundJob runs until its context ends. A returned error stops the
// runtime.
type backgroundJob struct {
	name string
	run  func(context.Context) error
}

// startBackground runs jobs in their own goroutines. Wait on the returned
// group after canceling ctx.
func startBackground(ctx context.Context, failed chan<- error, jobs ...backgroundJob) *sync.WaitGroup {
	var group sync.WaitGroup
	for _, job := range jobs {
		group.Go(func() {
			if err := job.run(ctx); err != nil {
				select {
				case failed <- fmt.Errorf("%s: %w", job.name, err):
				default:
					log.Printf("[e-class] warn: %s: %v", job.name, err)
				}
			}
		})
	}
	return &group
}

// ReactionHandler consumes reactions pushed by the chat bridge.
type ReactionHandler interface {
	HandleReaction(ctx context.Context, reaction domain.Reaction) (bool, error)
}

// pumpReactions forwards reactions to handler until the stream closes or
// ctx ends. Failures are logged and do not stop the pump.
func pumpReactions(ctx context.Context, reactions <-chan domain.Reaction, handler ReactionHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case reaction, ok := <-reactions:
			if !ok {
				return
			}
			callCtx, cancel := context.WithTimeout(ctx, timeouts.Request)
			if _, err := handler.HandleReaction(callCtx, reaction); err != nil {
				log.Printf("[e-class] warn: reaction on %s by %s: %v", reaction.MessageID, reaction.UserID, err)
			}
			cancel()
		}
	}
}
