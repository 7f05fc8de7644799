package cmd

import (
	"fmt"
	"log/slog"
	"sync"

	"ordersync/internal/adapters/in/http"
	"ordersync/internal/adapters/in/ws"
	"ordersync/internal/adapters/out/bus/amqpbus"
	"ordersync/internal/adapters/out/bus/membus"
	"ordersync/internal/adapters/out/bus/redisbus"
	"ordersync/internal/adapters/out/postgres"
	"ordersync/internal/adapters/out/postgres/riderrepo"
	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/core/application/usecases/queries"
	"ordersync/internal/core/ports"
	"ordersync/internal/core/services"
	"ordersync/internal/jobs"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CompositionRoot wires the whole application: bus, repositories, realtime
// services, use case handlers, transports and jobs. Realtime services are
// singletons created on first use.
type CompositionRoot struct {
	config     Config
	gormDB     *gorm.DB
	logger     *slog.Logger
	uowFactory *postgres.GormUnitOfWorkFactory

	busOnce sync.Once
	bus     ports.EventBus
	busErr  error

	servicesOnce sync.Once
	stateMachine *services.OrderStateMachine
	stream       *services.LocationStream
	registry     *services.ConversationRegistry
	router       *services.MessageRouter
	manager      *services.SubscriptionManager
}

// NewCompositionRoot creates the application wiring on top of an open
// database connection.
func NewCompositionRoot(config Config, gormDB *gorm.DB, logger *slog.Logger) *CompositionRoot {
	return &CompositionRoot{
		config:     config,
		gormDB:     gormDB,
		logger:     logger,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
	}
}

// EventBus returns the configured event bus, creating it on first call.
func (c *CompositionRoot) EventBus() (ports.EventBus, error) {
	c.busOnce.Do(func() {
		switch c.config.BusBackend {
		case "", "memory":
			c.bus = membus.New()
		case "redis":
			client := redis.NewClient(&redis.Options{Addr: c.config.RedisAddr})
			c.bus = redisbus.New(client, c.logger)
		case "amqp":
			conn, err := amqp.Dial(c.config.AmqpURL)
			if err != nil {
				c.busErr = fmt.Errorf("connect to AMQP broker: %w", err)
				return
			}
			c.bus, c.busErr = amqpbus.New(conn, c.logger)
		default:
			c.busErr = fmt.Errorf("unknown bus backend %q", c.config.BusBackend)
		}
	})
	return c.bus, c.busErr
}

// RealtimeServices returns the realtime core singletons, wiring them on
// first call: the state machine notifies the location stream and the
// conversation registry when orders go terminal.
func (c *CompositionRoot) RealtimeServices() (
	*services.OrderStateMachine,
	*services.LocationStream,
	*services.ConversationRegistry,
	*services.MessageRouter,
	*services.SubscriptionManager,
	error,
) {
	bus, err := c.EventBus()
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	c.servicesOnce.Do(func() {
		c.stateMachine = services.NewOrderStateMachine(c.uowFactory, bus, c.logger)
		c.stream = services.NewLocationStream(bus, c.stateMachine, c.config.LocationBroadcastInterval, c.logger)
		c.registry = services.NewConversationRegistry(c.uowFactory, c.logger)
		c.router = services.NewMessageRouter(c.registry, bus, c.config.ChatGracePeriod, c.logger)
		c.manager = services.NewSubscriptionManager(bus, c.stream, c.registry, c.logger)

		c.stateMachine.AddCloser(c.stream)
		c.stateMachine.AddCloser(c.registry)
	})
	return c.stateMachine, c.stream, c.registry, c.router, c.manager, nil
}

// CreateCreateOrderCommandHandler builds the order creation use case.
func (c *CompositionRoot) CreateCreateOrderCommandHandler() (commands.CreateOrderCommandHandler, error) {
	stateMachine, _, _, _, _, err := c.RealtimeServices()
	if err != nil {
		return commands.CreateOrderCommandHandler{}, err
	}

	var f commands.UoWFactory = FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f, stateMachine), nil
}

// CreateCreateRiderCommandHandler builds the rider registration use case.
func (c *CompositionRoot) CreateCreateRiderCommandHandler() commands.CreateRiderCommandHandler {
	return commands.NewCreateRiderCommandHandler(riderrepo.NewGormRiderRepository(c.gormDB))
}

// CreateGetActiveOrdersQueryHandler builds the active orders read model.
func (c *CompositionRoot) CreateGetActiveOrdersQueryHandler() queries.GetActiveOrdersQueryHandler {
	return queries.NewGetActiveOrdersQueryHandler(c.gormDB)
}

// CreateGetRidersQueryHandler builds the rider roster read model.
func (c *CompositionRoot) CreateGetRidersQueryHandler() queries.GetRidersQueryHandler {
	return queries.NewGetRidersQueryHandler(c.gormDB)
}

// CreateGetConversationMessagesQueryHandler builds the chat history read model.
func (c *CompositionRoot) CreateGetConversationMessagesQueryHandler() queries.GetConversationMessagesQueryHandler {
	return queries.NewGetConversationMessagesQueryHandler(c.gormDB)
}

// CreateHTTPServer builds the HTTP transport.
func (c *CompositionRoot) CreateHTTPServer() (*http.Server, error) {
	stateMachine, stream, registry, router, _, err := c.RealtimeServices()
	if err != nil {
		return nil, err
	}

	createOrderHandler, err := c.CreateCreateOrderCommandHandler()
	if err != nil {
		return nil, err
	}

	return http.NewServer(
		createOrderHandler,
		c.CreateCreateRiderCommandHandler(),
		c.CreateGetActiveOrdersQueryHandler(),
		c.CreateGetRidersQueryHandler(),
		c.CreateGetConversationMessagesQueryHandler(),
		stateMachine,
		stream,
		registry,
		router,
	), nil
}

// CreateWSHandler builds the websocket transport.
func (c *CompositionRoot) CreateWSHandler() (*ws.Handler, error) {
	_, _, _, _, manager, err := c.RealtimeServices()
	if err != nil {
		return nil, err
	}
	return ws.NewHandler(manager, c.logger), nil
}

// CreateJobManager builds the background job wiring.
func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	stateMachine, stream, registry, router, _, err := c.RealtimeServices()
	if err != nil {
		return nil, err
	}
	return jobs.NewJobManager(stateMachine, stream, registry, router, c.config.OrderRetention, c.logger), nil
}

// FuncUoWFactory adapts a closure to the commands.UoWFactory interface.
type FuncUoWFactory func() commands.UoW

// Create builds a new unit of work by invoking the wrapped closure.
func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
