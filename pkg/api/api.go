package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/source"
	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log     logrus.FieldLogger
	cfg     *config.Config
	store   store.Store
	metrics *processing.Metrics

	coordinator *processing.Coordinator
	ingest      *processing.IngestService
	appNames    *processing.AppNamesService

	// admins maps usernames to bcrypt password hashes.
	admins        map[string][]byte
	maxUploadSize int64

	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a new API server.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.Config,
) Server {
	return &server{
		log: log.WithField("component", "api"),
		cfg: cfg,
	}
}

// Start opens the store, seeds config data, and starts the HTTP server.
func (s *server) Start(ctx context.Context) error {
	s.store = store.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	if err := s.setup(ctx); err != nil {
		return err
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// setup seeds model maps, hashes admin credentials and wires the
// processing services to the open store.
func (s *server) setup(ctx context.Context) error {
	if err := s.store.SeedModelMaps(ctx, s.cfg.ModelMaps); err != nil {
		return fmt.Errorf("seeding model maps: %w", err)
	}

	s.admins = make(map[string][]byte, len(s.cfg.Auth.Admins))

	for _, admin := range s.cfg.Auth.Admins {
		hash, err := bcrypt.GenerateFromPassword(
			[]byte(admin.Password), bcrypt.DefaultCost,
		)
		if err != nil {
			return fmt.Errorf("hashing password for %s: %w", admin.Username, err)
		}

		s.admins[admin.Username] = hash
	}

	if len(s.admins) == 0 {
		s.log.Warn("No admins configured, admin endpoints are unauthenticated")
	}

	maxUpload, err := s.cfg.Ingest.MaxUploadBytes()
	if err != nil {
		return fmt.Errorf("parsing max upload size: %w", err)
	}

	s.maxUploadSize = maxUpload

	reader := source.NewReader(&s.cfg.Ingest.Source)
	if reader != nil {
		s.log.Info("Run export source enabled")
	}

	s.metrics = processing.NewMetrics()
	s.coordinator = processing.NewCoordinator(
		s.log, s.store, s.metrics, s.cfg.Processing.Concurrency,
	)
	s.ingest = processing.NewIngestService(
		s.log, s.coordinator, reader, maxUpload, s.metrics,
	)
	s.appNames = processing.NewAppNamesService(s.log, s.store)

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the store.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}
