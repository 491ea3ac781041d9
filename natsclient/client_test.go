package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, 5*time.Second, c.timeout)
	assert.Equal(t, 30*time.Second, c.drainTimeout)
	assert.Equal(t, -1, c.maxReconnects, "reconnect forever by default")
	assert.False(t, c.IsConnected())
}

func TestNewClientOptions(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithTimeout(time.Second),
		WithDrainTimeout(2*time.Second),
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithName("docstore-test"),
		WithCredentials("user", "pass"),
	)
	require.NoError(t, err)

	assert.Equal(t, time.Second, c.timeout)
	assert.Equal(t, 2*time.Second, c.drainTimeout)
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, "docstore-test", c.clientName)
}

func TestOptionValidation(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithLogger(nil))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithReconnectWait(-time.Second))
	assert.Error(t, err)
}

func TestOperationsRequireConnection(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "b"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.GetKeyValueBucket(ctx, "b")
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, c.DeleteKeyValueBucket(ctx, "b"), ErrNotConnected)
}
