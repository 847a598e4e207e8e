package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"venuebook/booking"
	"venuebook/config"
	"venuebook/db"
	"venuebook/db/bookings"
	"venuebook/db/events"
	"venuebook/db/pricing"
	"venuebook/db/read_model_occupancy"
	"venuebook/db/slots"
	"venuebook/entity"
	"venuebook/http"
	"venuebook/log"
	"venuebook/pubsub"
	"venuebook/pubsub/event"
	"venuebook/pubsub/outbox"
)

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	outboxForwarder *forwarder.Forwarder
	httpServer      *http.Server
}

func New(
	cfg config.Config,
	database *sqlx.DB,
	redisClient *redis.Client,
	location *time.Location,
) Service {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	slotsRepo := slots.NewPostgresRepository(database)
	schedulesRepo := pricing.NewPostgresRepository(database, watermillLogger)
	bookingsRepo := bookings.NewPostgresRepository(database, watermillLogger)
	occupancyReadModel := read_model_occupancy.NewPostgresRepository(database)
	dataLake := events.NewDataLake(database)

	now := time.Now

	resolver := booking.NewPriceResolver(slotsRepo, schedulesRepo)
	validator := booking.NewValidator(
		slotsRepo,
		bookingsRepo,
		resolver,
		entity.Money(cfg.MinimumAdvance),
		location,
		now,
	)
	bookingService := booking.NewService(bookingsRepo, slotsRepo, validator, location, now)

	var redisPublisher message.Publisher
	redisPublisher = pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	occupancyHandlers := event.NewOccupancyHandlers(occupancyReadModel)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	redisSubscriber := pubsub.NewRedisSubscriber(redisClient, "svc-venuebook.events", watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		redisPublisher,
		redisSubscriber,
		eventProcessorConfig,
		occupancyHandlers,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	outboxForwarder, err := outbox.NewForwarder(database.DB, redisClient, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		bookingService,
		slotsRepo,
		resolver,
		schedulesRepo,
		occupancyReadModel,
		location,
		now,
	)

	return Service{
		db:              database,
		watermillRouter: watermillRouter,
		outboxForwarder: outboxForwarder,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.outboxForwarder.Run(ctx)
	})

	g.Go(func() error {
		// the HTTP server must not report healthy before the router consumes
		<-s.watermillRouter.Running()
		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
