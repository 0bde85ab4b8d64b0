package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"docsearch/internal/core/domain"
)

// DocumentRepository owns the documents and chunks tables, including
// the pgvector similarity query. The embedding dimension is fixed per
// deployment and baked into the DDL.
type DocumentRepository struct {
	db        *sql.DB
	dimension int
}

func NewDocumentRepository(db *sql.DB, dimension int) *DocumentRepository {
	return &DocumentRepository{db: db, dimension: dimension}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	embedding vector(%d),
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_owner_created ON documents(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	ordinal INTEGER NOT NULL,
	content BYTEA NOT NULL,
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (document_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`, r.dimension, r.dimension)

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// IndexDocument writes the document row and all chunks in one
// transaction: insert as processing, insert chunks through a prepared
// statement, flip to completed, commit. Rollback on any failure leaves
// zero rows, so a reader can never observe a completed document with a
// partial chunk set.
func (r *DocumentRepository) IndexDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("document has no chunks"))
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != r.dimension {
			return domain.WrapError(
				domain.ErrEmbeddingProvider,
				"index document",
				fmt.Errorf("chunk %d embedding has dimension %d, store expects %d", chunk.Ordinal, len(chunk.Embedding), r.dimension),
			)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var docEmbedding any
	if len(doc.Embedding) > 0 {
		docEmbedding = pgvector.NewVector(doc.Embedding)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (id, owner_id, filename, content_type, storage_key, embedding, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.StorageKey,
		docEmbedding, string(domain.StatusProcessing), doc.CreatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("insert document: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, document_id, ordinal, content, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("prepare chunk insert: %w", err))
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.Ordinal, chunk.Content,
			pgvector.NewVector(chunk.Embedding), chunk.CreatedAt,
		)
		if err != nil {
			return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("insert chunk %d: %w", chunk.Ordinal, err))
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE documents SET status = $2 WHERE id = $1`,
		doc.ID, string(domain.StatusCompleted))
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("mark completed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorage, "index document", fmt.Errorf("commit tx: %w", err))
	}
	doc.Status = domain.StatusCompleted
	return nil
}

// BestChunkMatches scores every chunk of the owner's completed
// documents against the query vector, keeps the single best chunk per
// document (ties broken by lowest ordinal), applies the similarity
// floor and returns a page ordered by score descending. Document id is
// the final tie-break so identical inputs rank identically.
func (r *DocumentRepository) BestChunkMatches(
	ctx context.Context,
	ownerID string,
	queryVector []float32,
	floor float64,
	limit int,
) ([]domain.ChunkMatch, error) {
	if len(queryVector) != r.dimension {
		return nil, domain.WrapError(
			domain.ErrEmbeddingProvider,
			"search chunks",
			fmt.Errorf("query embedding has dimension %d, store expects %d", len(queryVector), r.dimension),
		)
	}

	rows, err := r.db.QueryContext(ctx, `
WITH scored AS (
	SELECT
		d.id AS document_id,
		d.filename,
		d.content_type,
		d.storage_key,
		d.created_at,
		c.ordinal,
		c.content,
		1 - (c.embedding <=> $1::vector) AS similarity,
		ROW_NUMBER() OVER (
			PARTITION BY d.id
			ORDER BY c.embedding <=> $1::vector ASC, c.ordinal ASC
		) AS chunk_rank
	FROM chunks c
	JOIN documents d ON d.id = c.document_id
	WHERE d.owner_id = $2 AND d.status = $3
)
SELECT document_id, filename, content_type, storage_key, created_at, ordinal, content, similarity
FROM scored
WHERE chunk_rank = 1 AND similarity >= $4
ORDER BY similarity DESC, document_id ASC
LIMIT $5
`,
		pgvector.NewVector(queryVector), ownerID, string(domain.StatusCompleted), floor, limit,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "search chunks", fmt.Errorf("similarity query: %w", err))
	}
	defer rows.Close()

	matches := make([]domain.ChunkMatch, 0, limit)
	for rows.Next() {
		var m domain.ChunkMatch
		err := rows.Scan(
			&m.DocumentID, &m.Filename, &m.ContentType, &m.StorageKey,
			&m.CreatedAt, &m.ChunkOrdinal, &m.ChunkContent, &m.Score,
		)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "search chunks", fmt.Errorf("scan match: %w", err))
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "search chunks", fmt.Errorf("iterate matches: %w", err))
	}
	return matches, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, filename, content_type, storage_key, status, created_at
FROM documents
WHERE id = $1 AND owner_id = $2
`, documentID, ownerID)

	var doc domain.Document
	var status string
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType, &doc.StorageKey, &status, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", documentID))
		}
		return nil, domain.WrapError(domain.ErrStorage, "get document", fmt.Errorf("scan document: %w", err))
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, filename, content_type, storage_key, status, created_at
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC, id ASC
LIMIT $2
`, ownerID, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list documents", fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	docs := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		var status string
		err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType, &doc.StorageKey, &status, &doc.CreatedAt)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "list documents", fmt.Errorf("scan document: %w", err))
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list documents", fmt.Errorf("iterate documents: %w", err))
	}
	return docs, nil
}

// Delete removes the chunks first to satisfy the foreign key, then the
// document row itself.
func (r *DocumentRepository) Delete(ctx context.Context, ownerID, documentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
DELETE FROM chunks
WHERE document_id IN (SELECT id FROM documents WHERE id = $1 AND owner_id = $2)
`, documentID, ownerID)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", fmt.Errorf("delete chunks: %w", err))
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, documentID, ownerID)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", fmt.Errorf("delete document: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id %s", documentID))
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
