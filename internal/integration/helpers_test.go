//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("merra2-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// memorySource serves one synthetic UK grid for every day and variable.
type memorySource struct {
	grid grid.Grid
}

func (m memorySource) LoadGrid(ctx context.Context, _ time.Time, _ string) (grid.Grid, error) {
	return m.grid, ctx.Err()
}

// ukGrid spans 48N..61N and 10W..5E with 24 hourly steps of a linear field,
// so every sample has a known closed form.
func ukGrid(t *testing.T) grid.Grid {
	t.Helper()
	lat := grid.NewAxis(grid.Latitude, 48, 27)
	lon := grid.NewAxis(grid.Longitude, -10, 25)
	values := make([]float64, 0, 24*lat.Len()*lon.Len())
	for h := 0; h < 24; h++ {
		for _, la := range lat.Values {
			for _, lo := range lon.Values {
				values = append(values, linearField(h, la, lo))
			}
		}
	}
	f, err := grid.NewField(24, lat.Len(), lon.Len(), values)
	require.NoError(t, err)
	return grid.Grid{Lat: lat, Lon: lon, Field: f}
}

func linearField(h int, lat, lon float64) float64 {
	return 300 + float64(h) - 0.5*lat + 0.25*lon
}
