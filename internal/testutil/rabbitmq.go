package testutil

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dkoun25/SportStoreProject/internal/events"
)

// Broker is a throwaway RabbitMQ for event tests.
type Broker struct {
	URL  string
	Conn *amqp.Connection
}

// StartBroker runs RabbitMQ in a container and dials it with the same
// settings the storefront uses. Everything is torn down with the test.
func StartBroker(t *testing.T) *Broker {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		_ = container.Terminate(stopCtx)
	})

	endpoint, err := container.PortEndpoint(ctx, "5672/tcp", "amqp")
	require.NoError(t, err)

	b := &Broker{URL: endpoint + "/"}
	b.Conn, err = events.Dial(b.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Conn.Close() })

	return b
}

// SubscribeOrderPlaced binds an exclusive queue to OrderPlaced events on the
// storefront exchange and returns its deliveries.
func (b *Broker) SubscribeOrderPlaced(t *testing.T) <-chan amqp.Delivery {
	t.Helper()

	ch, err := b.Conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	require.NoError(t, ch.ExchangeDeclare(events.EventsExchange, "topic", true, false, false, false, nil))

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.OrderPlacedRoutingKey, events.EventsExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "order-placed-test", true, true, false, false, nil)
	require.NoError(t, err)
	return deliveries
}
