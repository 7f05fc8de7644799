package queries_test

import (
	"context"
	"testing"
	"time"

	"ordersync/internal/adapters/out/postgres/conversationrepo"
	"ordersync/internal/adapters/out/postgres/orderrepo"
	"ordersync/internal/core/application/usecases/queries"
	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// nopTracker satisfies the repositories' aggregate tracking without a unit of work.
type nopTracker struct{}

func (nopTracker) TrackAggregate(_ kernel.UUID, _ interface{}) {}

// QueryHandlersTestSuite exercises both read-side handlers against a real
// PostgreSQL schema seeded through the repositories.
type QueryHandlersTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB

	orderRepo *orderrepo.GormOrderRepository
	convRepo  *conversationrepo.GormConversationRepository
}

func (suite *QueryHandlersTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&orderrepo.ItemDTO{},
		&conversationrepo.ConversationDTO{},
		&conversationrepo.ParticipantDTO{},
		&conversationrepo.MessageDTO{},
	))
}

func (suite *QueryHandlersTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec(
		"TRUNCATE TABLE orders, order_items, conversations, conversation_participants, conversation_messages").Error)

	suite.orderRepo = orderrepo.NewGormOrderRepository(suite.db, nopTracker{})
	suite.convRepo = conversationrepo.NewGormConversationRepository(suite.db, nopTracker{})
}

func (suite *QueryHandlersTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *QueryHandlersTestSuite) seedOrder() *order.Order {
	restaurant, err := kernel.NewGeoPoint(43.238949, 76.889709)
	suite.Require().NoError(err)
	customer, err := kernel.NewGeoPoint(43.222015, 76.851248)
	suite.Require().NoError(err)

	o, err := order.NewOrder(
		kernel.NewUUID(),
		kernel.NewUUID(),
		kernel.NewUUID(),
		kernel.NewUUID(),
		order.Waypoint{Name: "Napoli Pizza", Point: restaurant},
		order.Waypoint{Name: "Green Tower, apt 12", Point: customer},
		[]order.Item{{Name: "Margherita", Quantity: 2}},
	)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.orderRepo.Add(context.Background(), o))
	return o
}

func (suite *QueryHandlersTestSuite) TestGetActiveOrders_ExcludesDelivered() {
	ctx := context.Background()

	active := suite.seedOrder()
	delivered := suite.seedOrder()
	for _, target := range []order.Status{order.PickedUp, order.OnTheWay, order.Delivered} {
		suite.Require().NoError(delivered.TransitionTo(target))
	}
	suite.Require().NoError(suite.orderRepo.Update(ctx, delivered))

	handler := queries.NewGetActiveOrdersQueryHandler(suite.db)
	orders, err := handler.Handle(ctx, queries.NewGetActiveOrdersQuery())
	suite.Require().NoError(err)

	suite.Require().Len(orders, 1)
	suite.True(orders[0].ID.IsEqual(active.ID()))
	suite.True(orders[0].RiderID.IsEqual(active.RiderID()))
	suite.Equal("ASSIGNED", orders[0].Status)
	suite.Equal("Green Tower, apt 12", orders[0].Dropoff)
}

func (suite *QueryHandlersTestSuite) TestGetActiveOrders_RejectsUnconstructedQuery() {
	handler := queries.NewGetActiveOrdersQueryHandler(suite.db)
	_, err := handler.Handle(context.Background(), queries.GetActiveOrdersQuery{})
	suite.Require().Error(err)
}

func (suite *QueryHandlersTestSuite) seedConversationWithMessages(count int) *chat.Conversation {
	ctx := context.Background()

	c, err := chat.NewConversation(
		kernel.NewUUID(),
		kernel.NewUUID(),
		[]kernel.UUID{kernel.NewUUID(), kernel.NewUUID()},
	)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.convRepo.Add(ctx, c))

	sender := c.Participants()[0]
	for seq := int64(1); seq <= int64(count); seq++ {
		msg, msgErr := chat.NewMessage(c.ID(), seq, sender, "hello", time.Now().UTC())
		suite.Require().NoError(msgErr)
		suite.Require().NoError(suite.convRepo.AppendMessage(ctx, msg))
	}
	return c
}

func (suite *QueryHandlersTestSuite) TestGetConversationMessages_PagesInSequenceOrder() {
	ctx := context.Background()

	c := suite.seedConversationWithMessages(5)
	handler := queries.NewGetConversationMessagesQueryHandler(suite.db)

	query, err := queries.NewGetConversationMessagesQuery(c.ID(), 2, 2)
	suite.Require().NoError(err)

	messages, err := handler.Handle(ctx, query)
	suite.Require().NoError(err)

	suite.Require().Len(messages, 2)
	suite.Equal(int64(3), messages[0].Sequence)
	suite.Equal(int64(4), messages[1].Sequence)
	suite.True(messages[0].ConversationID.IsEqual(c.ID()))
}

func (suite *QueryHandlersTestSuite) TestGetConversationMessages_UnknownConversationIsEmpty() {
	handler := queries.NewGetConversationMessagesQueryHandler(suite.db)

	query, err := queries.NewGetConversationMessagesQuery(kernel.NewUUID(), 0, 0)
	suite.Require().NoError(err)

	messages, err := handler.Handle(context.Background(), query)
	suite.Require().NoError(err)
	suite.Empty(messages)
}

func TestQueryHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(QueryHandlersTestSuite))
}
