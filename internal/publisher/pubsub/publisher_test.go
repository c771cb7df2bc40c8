package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishWithoutClient(t *testing.T) {
	t.Parallel()

	p := New(nil)
	_, err := p.Publish(context.Background(), "players-stored", map[string]any{"username": "alice"})
	require.ErrorContains(t, err, "not configured")
	require.NoError(t, p.Close())
}

func TestConnectRequiresProject(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "")
	require.ErrorContains(t, err, "pubsub.project_id")
}

func newFakeClient(t *testing.T, topics ...string) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "chess-test", option.WithGRPCConn(conn))
	require.NoError(t, err)

	for _, topic := range topics {
		_, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{
			Name: "projects/chess-test/topics/" + topic,
		})
		require.NoError(t, err)
	}
	return client, srv
}

func TestPublishDeliversJSON(t *testing.T) {
	t.Parallel()

	client, srv := newFakeClient(t, "player-stored")
	p := New(client)

	id, err := p.Publish(context.Background(), "player-stored", map[string]any{
		"username": "alice",
		"games":    3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, p.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"username":"alice","games":3}`, string(msgs[0].Data))
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublishReusesTopicPublisher(t *testing.T) {
	t.Parallel()

	client, srv := newFakeClient(t, "player-stored", "audit")
	p := New(client)
	ctx := context.Background()

	for _, username := range []string{"alice", "bob"} {
		_, err := p.Publish(ctx, "player-stored", map[string]string{"username": username})
		require.NoError(t, err)
	}
	_, err := p.Publish(ctx, "audit", map[string]string{"username": "carol"})
	require.NoError(t, err)

	p.mu.Lock()
	require.Len(t, p.publishers, 2)
	p.mu.Unlock()

	require.NoError(t, p.Close())
	require.Len(t, srv.Messages(), 3)
}

func TestPublishRequiresTopic(t *testing.T) {
	t.Parallel()

	client, _ := newFakeClient(t)
	p := New(client)
	defer p.Close()

	_, err := p.Publish(context.Background(), "", map[string]string{"username": "alice"})
	require.ErrorContains(t, err, "topic is required")
}

func TestPublishUnknownTopicFails(t *testing.T) {
	t.Parallel()

	client, _ := newFakeClient(t)
	p := New(client)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := p.Publish(ctx, "missing", map[string]string{"username": "alice"})
	require.Error(t, err)
}
