package queries_test

import (
	"testing"

	"ordersync/internal/core/application/usecases/queries"
	"ordersync/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/require"
)

func TestNewGetActiveOrdersQuery(t *testing.T) {
	t.Run("should create valid query", func(t *testing.T) {
		query := queries.NewGetActiveOrdersQuery()
		require.NoError(t, query.Validate())
	})

	t.Run("should reject zero-value query", func(t *testing.T) {
		query := queries.GetActiveOrdersQuery{}
		require.ErrorIs(t, query.Validate(), queries.ErrGetActiveOrdersQueryIsNotConstructed)
	})
}

func TestNewGetConversationMessagesQuery(t *testing.T) {
	t.Run("should create query with defaults", func(t *testing.T) {
		conversationID := kernel.NewUUID()

		query, err := queries.NewGetConversationMessagesQuery(conversationID, 0, 0)
		require.NoError(t, err)
		require.NoError(t, query.Validate())
		require.True(t, query.ConversationID().IsEqual(conversationID))
		require.Equal(t, int64(0), query.AfterSequence())
		require.Equal(t, queries.DefaultMessagePageSize, query.Limit())
	})

	t.Run("should keep explicit page size", func(t *testing.T) {
		query, err := queries.NewGetConversationMessagesQuery(kernel.NewUUID(), 42, 10)
		require.NoError(t, err)
		require.Equal(t, int64(42), query.AfterSequence())
		require.Equal(t, 10, query.Limit())
	})

	t.Run("should fail with invalid conversation ID", func(t *testing.T) {
		_, err := queries.NewGetConversationMessagesQuery(kernel.UUID{}, 0, 0)
		require.Error(t, err)
	})

	t.Run("should reject zero-value query", func(t *testing.T) {
		query := queries.GetConversationMessagesQuery{}
		require.ErrorIs(t, query.Validate(), queries.ErrGetConversationMessagesQueryIsNotConstructed)
	})
}
