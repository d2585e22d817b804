package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
)

// setupTestClient connects to a local Redis/RedisGraph instance, skipping
// the test if none is reachable. Like the Stream Store, graph correctness
// depends on RedisGraph's own Cypher engine, not on something a mock could
// stand in for.
func setupTestClient(t *testing.T) (*Client, func()) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	graphName := "daneel_test_" + uuid.NewString()
	client := New(rdb, graphName, zap.NewNop())
	cleanup := func() {
		rdb.Do(context.Background(), "GRAPH.DELETE", graphName)
		rdb.Close()
	}
	return client, cleanup
}

func TestMergeEdgeIsIdempotent(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, client.MergeEdge(ctx, a, b, 0.5, cce.AssociationSemantic))
	require.NoError(t, client.MergeEdge(ctx, a, b, 0.9, cce.AssociationSemantic))

	neighbors, err := client.QueryNeighbors(ctx, a, 0.0)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, b, neighbors[0].MemoryID)
	assert.InDelta(t, 0.9, neighbors[0].Weight, 1e-9)
}

func TestQueryNeighborsRespectsMinWeight(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	a, strong, weak := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, client.MergeEdge(ctx, a, strong, 0.8, cce.AssociationTemporal))
	require.NoError(t, client.MergeEdge(ctx, a, weak, 0.1, cce.AssociationTemporal))

	neighbors, err := client.QueryNeighbors(ctx, a, 0.5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, strong, neighbors[0].MemoryID)
}

func TestQueryNeighborsDirectedBidirectionalIncludesIncoming(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, client.MergeEdge(ctx, b, a, 0.7, cce.AssociationCausal))

	outgoing, err := client.QueryNeighborsDirected(ctx, a, 0.0, false)
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	both, err := client.QueryNeighborsDirected(ctx, a, 0.0, true)
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, b, both[0].MemoryID)
}

func TestExportGraphMLIncludesNodesAndEdges(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, client.MergeEdge(ctx, a, b, 0.42, cce.AssociationEmotional))

	xml, err := client.ExportGraphML(ctx)
	require.NoError(t, err)
	assert.Contains(t, xml, "<graphml")
	assert.Contains(t, xml, a.String())
	assert.Contains(t, xml, b.String())
	assert.Contains(t, xml, `<data key="type">`)
}
