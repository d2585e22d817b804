// Package graph is the Association Graph: a RedisGraph-backed store of
// typed, weighted, directed edges between memories. The Vector Store is the
// source of truth for memory payloads and vectors; this graph exists
// purely for fast global traversal and association-chain queries that a
// per-point vector index can't answer efficiently.
package graph

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
)

// Client wraps a Redis connection pointed at one named graph.
type Client struct {
	rdb       *redis.Client
	graphName string
	log       *zap.Logger
}

// New builds a graph Client over an already-constructed Redis client.
func New(rdb *redis.Client, graphName string, log *zap.Logger) *Client {
	return &Client{rdb: rdb, graphName: graphName, log: log}
}

// MergeEdge creates the source and target nodes if absent and merges a
// single ASSOCIATED edge of the given type between them, setting its
// weight. Idempotent: calling it again for the same (source, target, type)
// updates the weight rather than duplicating the edge.
func (c *Client) MergeEdge(ctx context.Context, sourceID, targetID uuid.UUID, weight float64, assocType cce.AssociationType) error {
	query := fmt.Sprintf(
		"MERGE (a:Memory {id: '%s'}) "+
			"MERGE (b:Memory {id: '%s'}) "+
			"MERGE (a)-[r:ASSOCIATED {type: '%s'}]->(b) "+
			"SET r.weight = %s",
		sourceID, targetID, assocType.String(), formatFloat(weight),
	)

	if err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName, query).Err(); err != nil {
		return fmt.Errorf("%w: merge_edge: %v", cce.ErrConnectionFailed, err)
	}
	return nil
}

// Neighbor is one edge target reached from a query, with the edge's weight.
type Neighbor struct {
	MemoryID uuid.UUID
	Weight   float64
}

// QueryNeighbors returns a memory's outgoing neighbors with weight >=
// minWeight. Equivalent to QueryNeighborsDirected(id, minWeight, false).
func (c *Client) QueryNeighbors(ctx context.Context, memoryID uuid.UUID, minWeight float64) ([]Neighbor, error) {
	return c.QueryNeighborsDirected(ctx, memoryID, minWeight, false)
}

// QueryNeighborsDirected returns a memory's neighbors with weight >=
// minWeight. When bidirectional is true, both outgoing and incoming edges
// are returned (via a Cypher UNION); otherwise only outgoing edges are.
func (c *Client) QueryNeighborsDirected(ctx context.Context, memoryID uuid.UUID, minWeight float64, bidirectional bool) ([]Neighbor, error) {
	var query string
	if bidirectional {
		query = fmt.Sprintf(
			"MATCH (a:Memory {id: '%[1]s'})-[r:ASSOCIATED]->(b:Memory) "+
				"WHERE r.weight >= %[2]s "+
				"RETURN b.id, r.weight "+
				"UNION "+
				"MATCH (a:Memory {id: '%[1]s'})<-[r:ASSOCIATED]-(b:Memory) "+
				"WHERE r.weight >= %[2]s "+
				"RETURN b.id, r.weight",
			memoryID, formatFloat(minWeight),
		)
	} else {
		query = fmt.Sprintf(
			"MATCH (a:Memory {id: '%s'})-[r:ASSOCIATED]->(b:Memory) "+
				"WHERE r.weight >= %s "+
				"RETURN b.id, r.weight",
			memoryID, formatFloat(minWeight),
		)
	}

	result, err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName, query).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: query_neighbors: %v", cce.ErrConnectionFailed, err)
	}

	return parseNeighbors(result), nil
}

// parseNeighbors walks RedisGraph's [header, rows, statistics] reply shape
// and extracts (id, weight) pairs from the rows section.
func parseNeighbors(result any) []Neighbor {
	sections, ok := result.([]any)
	if !ok || len(sections) < 2 {
		return nil
	}
	rows, ok := sections[1].([]any)
	if !ok {
		return nil
	}

	var neighbors []Neighbor
	for _, row := range rows {
		fields, ok := row.([]any)
		if !ok || len(fields) < 2 {
			continue
		}
		idStr, okID := extractString(fields[0])
		weight, okWeight := extractFloat(fields[1])
		if !okID || !okWeight {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		neighbors = append(neighbors, Neighbor{MemoryID: id, Weight: weight})
	}
	return neighbors
}

func extractString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case []any:
		if len(v) > 0 {
			return extractString(v[0])
		}
	}
	return "", false
}

func extractFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case []any:
		if len(v) > 0 {
			return extractFloat(v[0])
		}
	}
	return 0, false
}

// Edge is one ASSOCIATED relationship returned by AllEdges.
type Edge struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Weight   float64
	Type     cce.AssociationType
}

// AllEdges returns every ASSOCIATED edge in the graph, for callers (the
// Sleep Engine's decay/prune pass) that need to walk the whole edge set
// rather than one node's neighborhood.
func (c *Client) AllEdges(ctx context.Context) ([]Edge, error) {
	result, err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName,
		"MATCH (a:Memory)-[r:ASSOCIATED]->(b:Memory) RETURN a.id, b.id, r.weight, r.type").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: all_edges: %v", cce.ErrConnectionFailed, err)
	}

	var edges []Edge
	for _, e := range parseEdges(result) {
		sourceID, err := uuid.Parse(e.source)
		if err != nil {
			continue
		}
		targetID, err := uuid.Parse(e.target)
		if err != nil {
			continue
		}
		edges = append(edges, Edge{SourceID: sourceID, TargetID: targetID, Weight: e.weight, Type: parseAssociationType(e.edgeType)})
	}
	return edges, nil
}

func parseAssociationType(s string) cce.AssociationType {
	for _, t := range []cce.AssociationType{
		cce.AssociationSemantic, cce.AssociationTemporal, cce.AssociationCausal,
		cce.AssociationEmotional, cce.AssociationSpatial, cce.AssociationGoal,
	} {
		if t.String() == s {
			return t
		}
	}
	return cce.AssociationSemantic
}

// SetEdgeWeight overwrites an existing edge's weight. It is a no-op (no
// error) if the edge does not exist: RedisGraph's SET on an unmatched
// pattern simply updates zero rows.
func (c *Client) SetEdgeWeight(ctx context.Context, sourceID, targetID uuid.UUID, weight float64) error {
	query := fmt.Sprintf(
		"MATCH (a:Memory {id: '%s'})-[r:ASSOCIATED]->(b:Memory {id: '%s'}) SET r.weight = %s",
		sourceID, targetID, formatFloat(weight),
	)
	if err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName, query).Err(); err != nil {
		return fmt.Errorf("%w: set_edge_weight: %v", cce.ErrConnectionFailed, err)
	}
	return nil
}

// DeleteEdge removes the ASSOCIATED edge between two memories, if any.
func (c *Client) DeleteEdge(ctx context.Context, sourceID, targetID uuid.UUID) error {
	query := fmt.Sprintf(
		"MATCH (a:Memory {id: '%s'})-[r:ASSOCIATED]->(b:Memory {id: '%s'}) DELETE r",
		sourceID, targetID,
	)
	if err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName, query).Err(); err != nil {
		return fmt.Errorf("%w: delete_edge: %v", cce.ErrConnectionFailed, err)
	}
	return nil
}

// ExportGraphML queries every node and ASSOCIATED edge and serializes the
// graph as GraphML XML, suitable for loading into Gephi.
func (c *Client) ExportGraphML(ctx context.Context) (string, error) {
	nodesResult, err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName, "MATCH (n:Memory) RETURN n.id").Result()
	if err != nil {
		return "", fmt.Errorf("%w: export nodes: %v", cce.ErrConnectionFailed, err)
	}
	nodeIDs := parseNodeIDs(nodesResult)

	edgesResult, err := c.rdb.Do(ctx, "GRAPH.QUERY", c.graphName,
		"MATCH (a:Memory)-[r:ASSOCIATED]->(b:Memory) RETURN a.id, b.id, r.weight, r.type").Result()
	if err != nil {
		return "", fmt.Errorf("%w: export edges: %v", cce.ErrConnectionFailed, err)
	}
	edges := parseEdges(edgesResult)

	var xml strings.Builder
	xml.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://graphml.graphdrawing.org/xmlns
         http://graphml.graphdrawing.org/xmlns/1.0/graphml.xsd">
  <key id="weight" for="edge" attr.name="weight" attr.type="double"/>
  <key id="type" for="edge" attr.name="type" attr.type="string"/>
  <graph id="daneel" edgedefault="directed">
`)

	for _, id := range nodeIDs {
		fmt.Fprintf(&xml, "    <node id=\"%s\"/>\n", id)
	}

	for i, e := range edges {
		fmt.Fprintf(&xml, "    <edge id=\"e%d\" source=\"%s\" target=\"%s\">\n", i, e.source, e.target)
		fmt.Fprintf(&xml, "      <data key=\"weight\">%s</data>\n", formatFloat(e.weight))
		fmt.Fprintf(&xml, "      <data key=\"type\">%s</data>\n", e.edgeType)
		xml.WriteString("    </edge>\n")
	}

	xml.WriteString("  </graph>\n</graphml>\n")

	c.log.Info("exported graph to graphml", zap.Int("nodes", len(nodeIDs)), zap.Int("edges", len(edges)))
	return xml.String(), nil
}

type graphEdge struct {
	source, target, edgeType string
	weight                   float64
}

func parseNodeIDs(result any) []string {
	sections, ok := result.([]any)
	if !ok || len(sections) < 2 {
		return nil
	}
	rows, ok := sections[1].([]any)
	if !ok {
		return nil
	}
	var ids []string
	for _, row := range rows {
		fields, ok := row.([]any)
		if !ok || len(fields) == 0 {
			continue
		}
		if id, ok := extractString(fields[0]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseEdges(result any) []graphEdge {
	sections, ok := result.([]any)
	if !ok || len(sections) < 2 {
		return nil
	}
	rows, ok := sections[1].([]any)
	if !ok {
		return nil
	}
	var edges []graphEdge
	for _, row := range rows {
		fields, ok := row.([]any)
		if !ok || len(fields) < 4 {
			continue
		}
		source, okS := extractString(fields[0])
		target, okT := extractString(fields[1])
		weight, _ := extractFloat(fields[2])
		edgeType, okType := extractString(fields[3])
		if !okType {
			edgeType = "unknown"
		}
		if okS && okT {
			edges = append(edges, graphEdge{source: source, target: target, weight: weight, edgeType: edgeType})
		}
	}
	return edges
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
