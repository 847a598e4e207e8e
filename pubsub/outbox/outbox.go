// Package outbox stores events in Postgres within the same transaction as the
// state change and forwards them to Redis streams afterwards, so no event is
// published for a rolled-back commit and no commit goes unannounced.
package outbox

import (
	stdSQL "database/sql"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

const Topic = "events_to_forward"

// NewPublisherForTx returns a publisher writing into the outbox table through
// the given transaction. Messages are wrapped in forwarder envelopes carrying
// their destination topic.
func NewPublisherForTx(tx *stdSQL.Tx, logger watermill.LoggerAdapter) (message.Publisher, error) {
	sqlPublisher, err := sql.NewPublisher(
		tx,
		sql.PublisherConfig{
			SchemaAdapter: sql.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: Topic,
	}), nil
}

// NewForwarder reads the outbox table and republishes to Redis. Run it next
// to the router; it blocks until the context is canceled.
func NewForwarder(db *stdSQL.DB, rdb *redis.Client, logger watermill.LoggerAdapter) (*forwarder.Forwarder, error) {
	sub, err := sql.NewSubscriber(db, sql.SubscriberConfig{
		SchemaAdapter:    sql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   sql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		return nil, err
	}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, err
	}

	return forwarder.NewForwarder(sub, pub, logger, forwarder.Config{
		ForwarderTopic: Topic,
	})
}
