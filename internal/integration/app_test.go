package integration_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/showgrid/showgrid/internal/app"
	"github.com/showgrid/showgrid/internal/booking"
	"github.com/showgrid/showgrid/internal/domain"
	"github.com/showgrid/showgrid/internal/holdstore"
	"github.com/showgrid/showgrid/internal/notify"
	"github.com/showgrid/showgrid/internal/payment"
	"github.com/showgrid/showgrid/internal/repository"
	appvalidator "github.com/showgrid/showgrid/internal/validator"
)

const callbackSecret = "integration-test-secret"

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	Redis       redis.UniversalClient
	Coordinator *booking.Coordinator
	Verifier    *booking.Verifier
	Reconciler  *booking.Reconciler
	Gateway     *fakeGateway
	Queue       *recordingPublisher
	Signer      *payment.Signer
	Sessions    *sessionHelper
}

// fakeGateway mints deterministic order IDs without calling out.
type fakeGateway struct {
	mu      sync.Mutex
	counter int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	return fmt.Sprintf("order_%06d", g.counter), nil
}

// recordingPublisher captures notifications instead of touching a broker.
type recordingPublisher struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, notification notify.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notifications = append(p.notifications, notification)
	return nil
}

func (p *recordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notifications = nil
}

func (p *recordingPublisher) Notifications() []notify.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]notify.Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

func newTestApp(cfg app.Config) (*TestApp, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validate := appvalidator.NewValidator()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	bookingRepo := repository.NewPostgresBookingRepository(db)
	showtimeRepo := repository.NewPostgresShowtimeRepository(db)
	holds := holdstore.NewRedisHoldStore(redisClient)

	queue := &recordingPublisher{}
	dispatcher := notify.NewDispatcher(queue, logger)

	gateway := &fakeGateway{}
	signer := payment.NewSigner(callbackSecret)

	coordinator := booking.NewCoordinator(holds, bookingRepo, showtimeRepo, gateway, logger, booking.CoordinatorConfig{
		HoldWindow: cfg.Booking.HoldWindow,
		Pricing: domain.PricingPolicy{
			ServiceFee: decimal.NewFromFloat(1.50),
			TaxRate:    decimal.NewFromFloat(0.08),
		},
	})
	verifier := booking.NewVerifier(bookingRepo, holds, signer, dispatcher, logger)
	reconciler := booking.NewReconciler(bookingRepo, holds, dispatcher, logger, cfg.Booking.SweepInterval)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validate,
		sessionManager,
		showtimeRepo,
		bookingRepo,
		holds,
		coordinator,
		verifier,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)

	cleanup := func() {
		cancel()

		select {
		case <-dispatcher.Done():
		case <-time.After(time.Second):
		}

		redisClient.Close()
		db.Close()
	}

	testApp := &TestApp{
		App:         application,
		DB:          db,
		Redis:       redisClient,
		Coordinator: coordinator,
		Verifier:    verifier,
		Reconciler:  reconciler,
		Gateway:     gateway,
		Queue:       queue,
		Signer:      signer,
		Sessions:    &sessionHelper{manager: sessionManager},
	}

	return testApp, cleanup, nil
}
