// Package knowledge mirrors ingested study materials into Neo4j so
// retrieval sources can be enriched with material-level context. The graph
// is optional and best-effort: callers treat every failure as non-fatal.
package knowledge

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/echolearn/go-tutor/index"
)

// Insight summarizes what the graph knows about one material.
type Insight struct {
	Filename   string
	ChunkCount int
	Related    []RelatedMaterial
}

type RelatedMaterial struct {
	ID       string
	Filename string
}

type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{driver: driver}
}

// SyncMaterial upserts the material node and recreates its chunk nodes.
func (s *Neo4jStore) SyncMaterial(ctx context.Context, doc index.Document, chunks []index.Chunk) error {
	if s.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	chunkRows := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		chunkRows[i] = map[string]any{
			"id":      chunk.ID.String(),
			"ordinal": chunk.Ordinal,
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{
			"id":       doc.ID.String(),
			"filename": doc.Filename,
			"kind":     doc.Kind,
		}

		if _, err := tx.Run(ctx, `
			MERGE (m:Material {id: $id})
			SET m.filename = $filename,
			    m.kind = $kind,
			    m.updated_at = datetime()
		`, params); err != nil {
			return nil, fmt.Errorf("upsert material node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (m:Material {id: $id})-[:HAS_CHUNK]->(c:Chunk)
			DETACH DELETE c
		`, params); err != nil {
			return nil, fmt.Errorf("clear existing chunk nodes: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (m:Material {id: $id})
			UNWIND $chunks AS row
			CREATE (c:Chunk {id: row.id, ordinal: row.ordinal})
			CREATE (m)-[:HAS_CHUNK]->(c)
		`, map[string]any{"id": doc.ID.String(), "chunks": chunkRows}); err != nil {
			return nil, fmt.Errorf("create chunk nodes: %w", err)
		}

		return nil, nil
	})
	return err
}

// Purge removes every material and chunk node; used on index rebuild.
func (s *Neo4jStore) Purge(ctx context.Context) error {
	if s.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		"MATCH (c:Chunk) DETACH DELETE c",
		"MATCH (m:Material) DETACH DELETE m",
	}
	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		if _, err := result.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

// MaterialInsights returns chunk counts and sibling materials for the given
// material ids.
func (s *Neo4jStore) MaterialInsights(ctx context.Context, ids []string) (map[string]Insight, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}
	if len(ids) == 0 {
		return map[string]Insight{}, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (m:Material)
		WHERE m.id IN $ids
		OPTIONAL MATCH (m)-[:HAS_CHUNK]->(c:Chunk)
		OPTIONAL MATCH (other:Material)
		WHERE other.id <> m.id
		WITH m,
		     count(DISTINCT c) AS chunkCount,
		     collect(DISTINCT {id: other.id, filename: other.filename}) AS others
		RETURN m.id AS id,
		       m.filename AS filename,
		       chunkCount,
		       [o IN others WHERE o.id IS NOT NULL] AS related
	`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("query material insights: %w", err)
	}

	insights := make(map[string]Insight)
	for result.Next(ctx) {
		record := result.Record()

		id, _ := record.Get("id")
		filename, _ := record.Get("filename")
		count, _ := record.Get("chunkCount")
		relatedRaw, _ := record.Get("related")

		insight := Insight{}
		if name, ok := filename.(string); ok {
			insight.Filename = name
		}
		if n, ok := count.(int64); ok {
			insight.ChunkCount = int(n)
		}
		if rows, ok := relatedRaw.([]any); ok {
			for _, row := range rows {
				props, ok := row.(map[string]any)
				if !ok {
					continue
				}
				related := RelatedMaterial{}
				if v, ok := props["id"].(string); ok {
					related.ID = v
				}
				if v, ok := props["filename"].(string); ok {
					related.Filename = v
				}
				if related.ID != "" {
					insight.Related = append(insight.Related, related)
				}
			}
		}

		if key, ok := id.(string); ok {
			insights[key] = insight
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read material insights: %w", err)
	}

	return insights, nil
}
