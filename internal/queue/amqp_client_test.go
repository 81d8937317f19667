package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	exchange, key string
	published     []amqp.Publishing
	err           error
}

func (f *fakePublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key = exchange, key
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func TestAMQPClientSendPublishesPersistentJSON(t *testing.T) {
	pub := &fakePublisher{}
	client := NewAMQPClientWithPublisher(pub, "skillgap.analyses")

	require.NoError(t, client.Send(context.Background(), Message{AnalysisID: "a-1", RequestID: "r-1"}))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "", pub.exchange)
	assert.Equal(t, "skillgap.analyses", pub.key)
	got := pub.published[0]
	assert.Equal(t, amqp.Persistent, got.DeliveryMode)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "a-1", got.MessageId)

	msg, err := DecodeMessage(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "a-1", msg.AnalysisID)
	assert.Equal(t, MessageVersion, msg.Version)
	assert.NotEmpty(t, msg.EnqueuedAt)
}

func TestAMQPClientSendWrapsPublishError(t *testing.T) {
	client := NewAMQPClientWithPublisher(&fakePublisher{err: errors.New("channel closed")}, "q")
	err := client.Send(context.Background(), Message{AnalysisID: "a-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amqp publish")
}

func TestAMQPClientSendHonoursCanceledContext(t *testing.T) {
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewAMQPClientWithPublisher(pub, "q").Send(ctx, Message{AnalysisID: "a-1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.published)
}
