package conversationrepo_test

import (
	"context"
	"testing"
	"time"

	"ordersync/internal/adapters/out/postgres/conversationrepo"
	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate interface{}) {
	m.Called(id, aggregate)
}

// ConversationRepositoryIntegrationTestSuite provides integration tests for
// ConversationRepository using PostgreSQL containers.
type ConversationRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *conversationrepo.GormConversationRepository
	tracker    *MockAggregateTracker
}

func (suite *ConversationRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container
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

	// Get connection string and connect to database
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	// Auto-migrate the schema
	suite.Require().NoError(db.AutoMigrate(
		&conversationrepo.ConversationDTO{},
		&conversationrepo.ParticipantDTO{},
		&conversationrepo.MessageDTO{},
	))
}

func (suite *ConversationRepositoryIntegrationTestSuite) SetupTest() {
	// Clean the database before each test
	suite.Require().NoError(suite.db.Exec(
		"TRUNCATE TABLE conversations, conversation_participants, conversation_messages").Error)

	// Create fresh repository and tracker for each test
	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything)
	suite.repository = conversationrepo.NewGormConversationRepository(suite.db, suite.tracker)
}

func (suite *ConversationRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *ConversationRepositoryIntegrationTestSuite) newConversation(orderID kernel.UUID) *chat.Conversation {
	c, err := chat.NewConversation(
		kernel.NewUUID(),
		orderID,
		[]kernel.UUID{kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()},
	)
	suite.Require().NoError(err)
	return c
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestAdd_ValidConversation_Success() {
	ctx := context.Background()

	c := suite.newConversation(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, c))

	restored, err := suite.repository.Get(ctx, c.ID())
	suite.Require().NoError(err)
	suite.True(restored.ID().IsEqual(c.ID()))
	suite.True(restored.OrderID().IsEqual(c.OrderID()))
	suite.Len(restored.Participants(), 3)
	suite.True(restored.ClosedAt().IsZero())
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestAdd_SecondConversationForSameOrder_Fails() {
	ctx := context.Background()

	orderID := kernel.NewUUID()
	suite.Require().NoError(suite.repository.Add(ctx, suite.newConversation(orderID)))

	// The unique index on order_id is the cross-process idempotency guard
	err := suite.repository.Add(ctx, suite.newConversation(orderID))
	suite.Require().Error(err)
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestGetByOrderID() {
	ctx := context.Background()

	orderID := kernel.NewUUID()
	c := suite.newConversation(orderID)
	suite.Require().NoError(suite.repository.Add(ctx, c))

	restored, err := suite.repository.GetByOrderID(ctx, orderID)
	suite.Require().NoError(err)
	suite.True(restored.ID().IsEqual(c.ID()))

	_, err = suite.repository.GetByOrderID(ctx, kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestUpdate_PersistsClosure() {
	ctx := context.Background()

	c := suite.newConversation(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, c))

	closedAt := time.Now().UTC().Truncate(time.Microsecond)
	c.Close(closedAt)
	suite.Require().NoError(suite.repository.Update(ctx, c))

	restored, err := suite.repository.Get(ctx, c.ID())
	suite.Require().NoError(err)
	suite.Equal(closedAt, restored.ClosedAt().UTC())
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestAppendMessage_AndLastSequence() {
	ctx := context.Background()

	c := suite.newConversation(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, c))

	last, err := suite.repository.GetLastSequence(ctx, c.ID())
	suite.Require().NoError(err)
	suite.Equal(int64(0), last)

	sender := c.Participants()[0]
	for seq := int64(1); seq <= 3; seq++ {
		msg, msgErr := chat.NewMessage(c.ID(), seq, sender, "hello", time.Now().UTC())
		suite.Require().NoError(msgErr)
		suite.Require().NoError(suite.repository.AppendMessage(ctx, msg))
	}

	last, err = suite.repository.GetLastSequence(ctx, c.ID())
	suite.Require().NoError(err)
	suite.Equal(int64(3), last)
}

func (suite *ConversationRepositoryIntegrationTestSuite) TestAppendMessage_DuplicateSequence_Fails() {
	ctx := context.Background()

	c := suite.newConversation(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, c))

	sender := c.Participants()[0]
	msg, err := chat.NewMessage(c.ID(), 1, sender, "first", time.Now().UTC())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.AppendMessage(ctx, msg))

	// The composite primary key forbids sequence reuse
	dup, err := chat.NewMessage(c.ID(), 1, sender, "imposter", time.Now().UTC())
	suite.Require().NoError(err)
	suite.Require().Error(suite.repository.AppendMessage(ctx, dup))
}

func TestConversationRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationRepositoryIntegrationTestSuite))
}
