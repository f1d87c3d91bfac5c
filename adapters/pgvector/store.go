package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/ProjectAlita/indexpipe/vectorstore"
)

// Distance represents the distance calculation method
type Distance string

const (
	Cosine       Distance = "cosine"
	Euclidean    Distance = "euclidean"
	InnerProduct Distance = "inner_product"
)

// IsValid checks if the distance metric is valid
func (d Distance) IsValid() bool {
	switch d {
	case Cosine, Euclidean, InnerProduct:
		return true
	default:
		return false
	}
}

const undefinedTableCode = "42P01"

// collectionRe guards table-name splicing: collection suffixes are validated
// upstream but the adapter never trusts its input.
var collectionRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// PGVectorStore is a pgvector-backed vectorstore.Store. Each collection maps
// to its own table named <prefix>_<collection>.
type PGVectorStore struct {
	pool        *pgxpool.Pool
	tablePrefix string
	dimension   int
	distance    Distance
}

type Options struct {
	TablePrefix string
	Dimension   int
	Distance    Distance
}

const (
	defaultTablePrefix = "docs"
	defaultDimension   = 1536
)

func NewPGVectorStore(ctx context.Context, connString string, opts Options) (*PGVectorStore, error) {
	if opts.Distance == "" {
		opts.Distance = Cosine
	}
	if !opts.Distance.IsValid() {
		return nil, fmt.Errorf("invalid distance metric: %s", opts.Distance)
	}
	if opts.TablePrefix == "" {
		opts.TablePrefix = defaultTablePrefix
	}
	if !collectionRe.MatchString(opts.TablePrefix) {
		return nil, fmt.Errorf("invalid table prefix: %s", opts.TablePrefix)
	}
	if opts.Dimension <= 0 {
		opts.Dimension = defaultDimension
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("error parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	return &PGVectorStore{
		pool:        pool,
		tablePrefix: opts.TablePrefix,
		dimension:   opts.Dimension,
		distance:    opts.Distance,
	}, nil
}

func (p *PGVectorStore) table(collection string) (string, error) {
	if !collectionRe.MatchString(collection) {
		return "", vectorstore.NewInvalidFilterError(collection, "collection name must match "+collectionRe.String())
	}
	return p.tablePrefix + "_" + collection, nil
}

// getOperatorAndFunction returns the operator and index operator class for the
// configured distance metric.
func (p *PGVectorStore) getOperatorAndFunction() (string, string) {
	switch p.distance {
	case Euclidean:
		return "<->", "vector_l2_ops"
	case InnerProduct:
		return "<#>", "vector_ip_ops"
	default: // Cosine
		return "<=>", "vector_cosine_ops"
	}
}

// EnsureCollection creates the collection's table and similarity index,
// dropping any prior contents when forceRecreate is true.
func (p *PGVectorStore) EnsureCollection(ctx context.Context, collection string, forceRecreate bool) error {
	table, err := p.table(collection)
	if err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return vectorstore.NewInitFailedError(collection, err)
	}

	if forceRecreate {
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return vectorstore.NewInitFailedError(collection, err)
		}
	}

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`, table, p.dimension)
	if _, err := p.pool.Exec(ctx, createTableSQL); err != nil {
		return vectorstore.NewInitFailedError(collection, err)
	}

	_, opClass := p.getOperatorAndFunction()
	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = 100)
	`, table, table, opClass)
	if _, err := p.pool.Exec(ctx, indexSQL); err != nil {
		return vectorstore.NewInitFailedError(collection, err)
	}

	docIDIndexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_doc_id_idx
		ON %s ((metadata->>'%s'))
	`, table, table, vectorstore.MetadataDocID)
	if _, err := p.pool.Exec(ctx, docIDIndexSQL); err != nil {
		return vectorstore.NewInitFailedError(collection, err)
	}

	return nil
}

// Manifest rebuilds the collection's id-to-marker mapping from the stored
// chunk metadata. A missing table yields an empty manifest.
func (p *PGVectorStore) Manifest(ctx context.Context, collection string) (vectorstore.Manifest, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT metadata->>'%s', COALESCE(metadata->>'%s', '')
		FROM %s
		WHERE metadata->>'%s' IS NOT NULL
	`, vectorstore.MetadataDocID, vectorstore.MetadataUpdatedOn, table, vectorstore.MetadataDocID)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return vectorstore.Manifest{}, nil
		}
		return nil, vectorstore.NewManifestFailedError(collection, err)
	}
	defer rows.Close()

	manifest := vectorstore.Manifest{}
	for rows.Next() {
		var docID, marker string
		if err := rows.Scan(&docID, &marker); err != nil {
			return nil, vectorstore.NewManifestFailedError(collection, err)
		}
		manifest[docID] = marker
	}
	if err := rows.Err(); err != nil {
		return nil, vectorstore.NewManifestFailedError(collection, err)
	}

	return manifest, nil
}

// Upsert inserts the documents and their vectors in one batch.
func (p *PGVectorStore) Upsert(ctx context.Context, collection string, docs []vectorstore.Document, vectors [][]float32) error {
	table, err := p.table(collection)
	if err != nil {
		return err
	}
	if len(docs) != len(vectors) {
		return vectorstore.NewUpsertFailedError(collection,
			fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors)))
	}
	for _, vector := range vectors {
		if len(vector) != p.dimension {
			return vectorstore.NewInvalidDimensionsError(collection, p.dimension, len(vector))
		}
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
	`, table)

	batch := &pgx.Batch{}
	for i, doc := range docs {
		batch.Queue(insertSQL, doc.ID, doc.PageContent, doc.Metadata, formatVectorForPG(vectors[i]))
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(docs); i++ {
		if _, err := results.Exec(); err != nil {
			return vectorstore.NewUpsertFailedError(collection,
				fmt.Errorf("error inserting document %d: %w", i, err))
		}
	}

	return nil
}

// Delete removes documents matching the metadata filter. A missing table is a
// successful no-op.
func (p *PGVectorStore) Delete(ctx context.Context, collection string, filter vectorstore.Filter) error {
	table, err := p.table(collection)
	if err != nil {
		return err
	}

	conditions := make([]string, 0, len(filter))
	args := make([]interface{}, 0, len(filter))
	for key, value := range filter {
		args = append(args, fmt.Sprint(value))
		conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("DELETE FROM %s %s", table, whereClause)
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return vectorstore.NewDeleteFailedError(collection, err)
	}

	return nil
}

// DeleteAll removes every document in the collection. A missing table is a
// successful no-op.
func (p *PGVectorStore) DeleteAll(ctx context.Context, collection string) error {
	table, err := p.table(collection)
	if err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return vectorstore.NewDeleteFailedError(collection, err)
	}

	return nil
}

// SimilaritySearch returns the documents nearest to the vector.
func (p *PGVectorStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Document, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}

	operator, _ := p.getOperatorAndFunction()
	vectorStr := formatVectorForPG(vector)

	whereClause := ""
	args := []interface{}{vectorStr, limit}
	if len(filter) > 0 {
		conditions := make([]string, 0, len(filter))
		for key, value := range filter {
			args = append(args, fmt.Sprint(value))
			conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, len(args)))
		}
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var scoreExpr string
	switch p.distance {
	case InnerProduct:
		scoreExpr = fmt.Sprintf("(embedding %s $1::vector) * -1", operator)
	case Euclidean:
		scoreExpr = fmt.Sprintf("1 / (1 + (embedding %s $1::vector))", operator)
	default: // Cosine
		scoreExpr = fmt.Sprintf("1 - (embedding %s $1::vector)", operator)
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			content,
			metadata,
			%s as similarity
		FROM %s
		%s
		ORDER BY embedding %s $1::vector
		LIMIT $2
	`, scoreExpr, table, whereClause, operator)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, vectorstore.NewCollectionNotFoundError(collection, err)
		}
		return nil, vectorstore.NewSearchFailedError(collection, err)
	}
	defer rows.Close()

	var docs []vectorstore.Document
	for rows.Next() {
		var doc vectorstore.Document
		if err := rows.Scan(&doc.ID, &doc.PageContent, &doc.Metadata, &doc.Score); err != nil {
			return nil, vectorstore.NewSearchFailedError(collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, vectorstore.NewSearchFailedError(collection, err)
	}

	return docs, nil
}

// Close closes the database connection pool
func (p *PGVectorStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

// formatVectorForPG converts a float32 slice to the pgvector literal format
func formatVectorForPG(vector []float32) string {
	var b strings.Builder
	b.WriteString("[")
	for i, v := range vector {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("%.9f", float64(v)))
	}
	b.WriteString("]")
	return b.String()
}
