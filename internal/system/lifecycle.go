package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/api/rest"
	"github.com/KevinKickass/OpenPowerCore/internal/api/websocket"
	"github.com/KevinKickass/OpenPowerCore/internal/auth"
	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/hotplug"
	"github.com/KevinKickass/OpenPowerCore/internal/interfaces"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
	"github.com/KevinKickass/OpenPowerCore/internal/storage"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const journalBufferSize = 256

type Option func(*LifecycleManager)

// WithDriver uses an already opened GPIO driver instead of the configured
// backend. The manager takes ownership and closes it on shutdown.
func WithDriver(driver gpio.Driver) Option {
	return func(lm *LifecycleManager) { lm.driver = driver }
}

// WithStorage enables the event journal.
func WithStorage(client *storage.PostgresClient) Option {
	return func(lm *LifecycleManager) { lm.storage = client }
}

type LifecycleManager struct {
	config  *config.Config
	logger  *zap.Logger
	driver  gpio.Driver
	storage *storage.PostgresClient

	registry    *board.Registry
	sampler     *board.Sampler
	power       *power.Service
	authService *auth.AuthService
	wsHub       *websocket.Hub
	journal     *storage.Journal
	hubStarted  bool

	restServer *rest.Server
	grpcServer *grpc.Server
	health     *health.Server
	grpcAddr   net.Addr

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    error

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager opens the GPIO backend, loads the board profile and
// wires every service. Nothing runs until Start.
func NewLifecycleManager(cfg *config.Config, logger *zap.Logger, opts ...Option) (*LifecycleManager, error) {
	lm := &LifecycleManager{
		config:       cfg,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(lm)
	}

	if lm.driver == nil {
		driver, err := gpio.Open(cfg.GPIO.Backend, cfg.GPIO.Chip, cfg.GPIO.Consumer)
		if err != nil {
			return nil, fmt.Errorf("failed to open gpio backend: %w", err)
		}
		lm.driver = driver
	}

	if err := lm.setup(); err != nil {
		lm.driver.Close()
		return nil, err
	}

	return lm, nil
}

func (lm *LifecycleManager) setup() error {
	loader, err := board.NewProfileLoader()
	if err != nil {
		return fmt.Errorf("failed to create profile loader: %w", err)
	}
	profile, err := loader.Load(lm.config.Board.Profile)
	if err != nil {
		return err
	}

	lm.registry, err = board.NewRegistry(profile, lm.driver,
		board.WithLogger(lm.logger),
		board.WithDebounceDepth(lm.config.Detect.DebounceDepth))
	if err != nil {
		return fmt.Errorf("failed to build board registry: %w", err)
	}

	lm.sampler = board.NewSampler(lm.registry, lm.driver, lm.config.Detect.TickInterval, lm.logger)
	lm.power = power.NewService(lm.registry, lm.config.Wakeout.DefaultLengthUs, lm.logger,
		power.WithMaxWakeoutLength(lm.config.Wakeout.MaxLengthUs))
	lm.authService = auth.NewAuthService(lm.config.Auth, lm.logger)

	lm.wsHub = websocket.NewHub(lm.logger, lm.authService)
	lm.wsHub.SetSnapshotProvider(lm.power)

	lm.sampler.Subscribe(lm.wsHub.HotplugListener())
	lm.power.Subscribe(lm.wsHub.PowerListener())

	lm.sampler.Subscribe(func(ev board.HotplugEvent) {
		lm.logger.Info("Hotplug state changed",
			zap.String("interface", ev.Interface),
			zap.Stringer("from", ev.From),
			zap.Stringer("to", ev.To))
	})

	if lm.storage != nil {
		lm.journal = storage.NewJournal(lm.storage, journalBufferSize, lm.logger)
		lm.sampler.Subscribe(lm.journal.HotplugListener())
		lm.power.Subscribe(lm.journal.PowerListener())
	}

	lm.logger.Info("Board profile loaded",
		zap.String("board", lm.registry.BoardName()),
		zap.Int("interfaces", lm.registry.Len()),
		zap.String("gpio_backend", lm.config.GPIO.Backend))

	return nil
}

// Start brings up the event journal, the detect sampler and both servers.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting OpenPowerCore")

	if lm.journal != nil {
		if err := lm.storage.EnsureSchema(ctx); err != nil {
			lm.setError(err)
			return err
		}
		lm.journal.Start()
	}

	lm.hubStarted = true
	go lm.wsHub.Run()

	if err := lm.sampler.Start(); err != nil {
		err = fmt.Errorf("failed to start detect sampler: %w", err)
		lm.setError(err)
		return err
	}

	if err := lm.startGRPCServer(); err != nil {
		err = fmt.Errorf("failed to start gRPC: %w", err)
		lm.setError(err)
		return err
	}

	if err := lm.startRESTServer(); err != nil {
		err = fmt.Errorf("failed to start REST API: %w", err)
		lm.setError(err)
		return err
	}

	if err := lm.setState(StateRunning); err != nil {
		return err
	}
	lm.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Duration("tick_interval", lm.config.Detect.TickInterval))

	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	lm.grpcAddr = lis.Addr()

	lm.grpcServer = grpc.NewServer()
	lm.health = health.NewServer()
	lm.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(lm.grpcServer, lm.health)
	reflection.Register(lm.grpcServer)

	go func() {
		lm.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	return lm.restServer.Start()
}

// Shutdown stops every service in parallel and then releases the GPIO
// lines. Only the first call does any work.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		if err := lm.setState(StateStopping); err != nil {
			lm.logger.Warn("Unexpected state on shutdown", zap.Error(err))
		}
		if lm.health != nil {
			lm.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		}

		shutdownErr = lm.gracefulShutdown(ctx)

		if err := lm.driver.Close(); err != nil {
			lm.logger.Error("Failed to release gpio lines", zap.Error(err))
		}

		if shutdownErr != nil {
			lm.setError(shutdownErr)
		}
		if err := lm.setState(StateStopped); err != nil {
			lm.logger.Warn("Unexpected state on shutdown", zap.Error(err))
		}

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	// 1. Detect sampler
	wg.Add(1)
	go func() {
		defer wg.Done()
		lm.sampler.Stop()
	}()

	// 2. REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	// 3. gRPC Server graceful stop
	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.logger.Info("Stopping gRPC server")
			lm.grpcServer.GracefulStop()
		}()
	}

	// 4. Event journal drains its queue
	if lm.journal != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lm.journal.Stop(ctx); err != nil {
				errChan <- fmt.Errorf("journal stop failed: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		// The hub goes last so clients see the STOPPING broadcast.
		if lm.hubStarted {
			lm.wsHub.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		return fmt.Errorf("shutdown timeout exceeded")
	}

	close(errChan)
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	lm.logger.Info("Graceful shutdown completed")
	return nil
}

// Done is closed once Shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) error {
	lm.stateMu.Lock()
	previous := lm.currentState
	if err := ValidateTransition(previous, state); err != nil {
		lm.stateMu.Unlock()
		return err
	}
	lm.currentState = state
	lm.stateMu.Unlock()

	lm.logger.Info("System state changed",
		zap.Stringer("from", previous),
		zap.Stringer("to", state))
	lm.wsHub.Broadcast(websocket.NewSystemStateMessage(state.String(), previous.String()))
	return nil
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))

	lm.stateMu.Lock()
	lm.lastError = err
	lm.stateMu.Unlock()

	if err := lm.setState(StateError); err != nil {
		lm.logger.Warn("Cannot enter error state", zap.Error(err))
	}
}

// State returns the current lifecycle state and the last recorded error.
func (lm *LifecycleManager) State() SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := SystemStatus{
		State:     lm.currentState,
		Timestamp: time.Now().Unix(),
	}
	if lm.lastError != nil {
		status.Error = lm.lastError.Error()
	}
	return status
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	status := interfaces.SystemStatus{
		State:            lm.State().State.String(),
		Board:            lm.registry.BoardName(),
		InterfaceCount:   lm.registry.Len(),
		SamplerRunning:   lm.sampler.IsRunning(),
		JournalEnabled:   lm.journal != nil,
		WebsocketClients: lm.wsHub.GetClientCount(),
	}

	for i := range lm.registry.Interfaces(nil) {
		if i.Vsys().UseCount() > 0 {
			status.PoweredCount++
		}
		if !i.IsModulePort() {
			continue
		}
		status.ModulePortCount++
		if i.HotplugState() == hotplug.StatePlugged {
			status.PluggedCount++
		}
	}

	return status
}

// GRPCAddr is the bound gRPC listener address, valid after Start.
func (lm *LifecycleManager) GRPCAddr() net.Addr {
	return lm.grpcAddr
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) PowerService() *power.Service {
	return lm.power
}

func (lm *LifecycleManager) Sampler() *board.Sampler {
	return lm.sampler
}

// Events is nil when no database is configured.
func (lm *LifecycleManager) Events() interfaces.EventReader {
	if lm.storage == nil {
		return nil
	}
	return lm.storage
}
