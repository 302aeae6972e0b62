package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type pgvectorConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// pgvectorStore keeps chunk vectors in a Postgres table with a pgvector
// column. Cosine similarity is computed as 1 - cosine distance so scores
// are comparable with the qdrant backend.
type pgvectorStore struct {
	db    *sqlx.DB
	table string
}

func init() {
	Register("pgvector", createPgvectorStore)
}

func createPgvectorStore(args interface{}) (Store, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "docqa_chunks"
	}
	if !isSafeIdent(cfg.Table) {
		return nil, fmt.Errorf("invalid pgvector table name: %s", cfg.Table)
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &pgvectorStore{db: db, table: cfg.Table}, nil
}

func (s *pgvectorStore) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table),
		fmt.Sprintf(`CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, dim),
		fmt.Sprintf(`CREATE INDEX idx_%s_doc ON %s (doc_id)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init pgvector table: %w", err)
		}
	}
	return nil
}

func (s *pgvectorStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		rows = append(rows, map[string]interface{}{
			"id":          p.ID,
			"doc_id":      p.Payload.DocID,
			"source":      p.Payload.Source,
			"chunk_index": p.Payload.ChunkIndex,
			"content":     p.Payload.Text,
			"embedding":   pgvector.NewVector(p.Vector),
		})
	}
	sqlStr, args, err := builder.BuildInsert(s.table, rows)
	if err != nil {
		return err
	}
	sqlStr += ` ON CONFLICT (id) DO UPDATE SET
		doc_id = EXCLUDED.doc_id,
		source = EXCLUDED.source,
		chunk_index = EXCLUDED.chunk_index,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding`
	sqlStr = sqlx.Rebind(sqlx.DOLLAR, sqlStr)
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("pgvector upsert: %w", err)
	}
	return nil
}

func (s *pgvectorStore) Search(ctx context.Context, vector []float32, docIDs []string, limit int, scoreThreshold float64) ([]Result, error) {
	query := fmt.Sprintf(`
		SELECT id, doc_id, source, chunk_index, content, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE doc_id = ANY($2)
		ORDER BY embedding <=> $1
		LIMIT $3`, s.table)
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), pq.Array(docIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Payload.DocID, &r.Payload.Source, &r.Payload.ChunkIndex, &r.Payload.Text, &r.Score); err != nil {
			return nil, err
		}
		if r.Score < scoreThreshold {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func isSafeIdent(name string) bool {
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return false
	}
	return !strings.HasPrefix(name, "_") && name != ""
}
