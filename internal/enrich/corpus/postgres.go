package corpus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"enrichcore/internal/enrich/errs"
	"enrichcore/internal/enrich/index"
)

// Postgres reads chunks for one corpus source from a table with
// (text, embedding, ...) columns, where embedding is a little-endian
// float32 blob rather than a pgvector column: the enrichment core has no
// hard dependency on the pgvector extension being installed.
type Postgres struct {
	pool   *pgxpool.Pool
	source index.Source
	query  string
}

// NewPostgres constructs a reader that runs query against pool. query must
// select, in order: text (text), embedding (bytea), session_id (text,
// may be NULL), file (text, may be NULL), start_line (int, may be NULL),
// end_line (int, may be NULL), start_ts (timestamptz, may be NULL),
// end_ts (timestamptz, may be NULL).
func NewPostgres(pool *pgxpool.Pool, source index.Source, query string) *Postgres {
	return &Postgres{pool: pool, source: source, query: query}
}

func (p *Postgres) Source() index.Source { return p.source }

func (p *Postgres) ReadAll(ctx context.Context) ([]index.Chunk, error) {
	rows, err := p.pool.Query(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("enrich: query %s corpus: %w", p.source, errs.ErrCorpusUnavailable)
	}
	defer rows.Close()

	var out []index.Chunk
	for rows.Next() {
		var (
			text      string
			embedding []byte
			sessionID *string
			file      *string
			startLine *int
			endLine   *int
			startTs   *time.Time
			endTs     *time.Time
		)
		if err := rows.Scan(&text, &embedding, &sessionID, &file, &startLine, &endLine, &startTs, &endTs); err != nil {
			return nil, fmt.Errorf("enrich: scan %s row: %w", p.source, errs.ErrCorpusUnavailable)
		}
		vec, err := decodeFloat32LE(embedding)
		if err != nil {
			return nil, fmt.Errorf("enrich: decode %s embedding: %w", p.source, errs.ErrCorpusUnavailable)
		}
		meta := index.Metadata{Source: p.source, Text: text}
		if sessionID != nil {
			meta.SessionID = *sessionID
		}
		if file != nil {
			meta.File = *file
		}
		if startLine != nil {
			meta.StartLine = *startLine
		}
		if endLine != nil {
			meta.EndLine = *endLine
		}
		if startTs != nil {
			meta.StartTs = *startTs
		}
		if endTs != nil {
			meta.EndTs = *endTs
		}
		out = append(out, index.Chunk{Vector: vec, Meta: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enrich: iterate %s rows: %w", p.source, errs.ErrCorpusUnavailable)
	}
	return out, nil
}

func decodeFloat32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(b[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func encodeFloat32LE(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(x))
	}
	return out
}
