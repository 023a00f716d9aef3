package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-roi/internal/roi"
)

// Feature kinds stored in the kind column.
const (
	kindChain      = "chain"
	kindTranscript = "transcript"
)

const featureColumns = `id, kind, chrom, strand, start_pos, end_pos, segments, masks, attributes, cds_genome_start, cds_genome_end`

// featureRow is the column form of a feature.
type featureRow struct {
	id             string
	kind           string
	chrom          string
	strand         string
	start, end     int64
	segments       string
	masks          string
	attributes     string
	cdsGenomeStart sql.NullInt64
	cdsGenomeEnd   sql.NullInt64
}

func (r *featureRow) args() []any {
	return []any{
		r.id, r.kind, r.chrom, r.strand, r.start, r.end,
		r.segments, r.masks, r.attributes,
		nullable(r.cdsGenomeStart), nullable(r.cdsGenomeEnd),
	}
}

func nullable(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

// encodeSegments stores segments as [[start,end],...]. Chromosome and
// strand are held in their own columns.
func encodeSegments(segs []roi.Segment) (string, error) {
	pairs := make([][2]int, len(segs))
	for i, s := range segs {
		pairs[i] = [2]int{s.Start, s.End}
	}
	b, err := json.Marshal(pairs)
	return string(b), err
}

func decodeSegments(chrom string, strand roi.Strand, data string) ([]roi.Segment, error) {
	var pairs [][2]int
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, err
	}
	segs := make([]roi.Segment, len(pairs))
	for i, p := range pairs {
		segs[i] = roi.Segment{Chrom: chrom, Start: p[0], End: p[1], Strand: strand}
	}
	return segs, nil
}

func toRow(f roi.Feature) (*featureRow, error) {
	c := f.AsChain()
	r := &featureRow{
		id:     f.Name(),
		kind:   kindChain,
		chrom:  c.Chrom(),
		strand: c.Strand().String(),
	}
	if span, ok := c.Span(); ok {
		r.start, r.end = int64(span.Start), int64(span.End)
	}
	var err error
	if r.segments, err = encodeSegments(c.Segments()); err != nil {
		return nil, fmt.Errorf("encode segments of %s: %w", r.id, err)
	}
	if r.masks, err = encodeSegments(c.Masks()); err != nil {
		return nil, fmt.Errorf("encode masks of %s: %w", r.id, err)
	}
	attr, err := json.Marshal(c.Attr())
	if err != nil {
		return nil, fmt.Errorf("encode attributes of %s: %w", r.id, err)
	}
	r.attributes = string(attr)

	if t, ok := f.(*roi.Transcript); ok {
		r.kind = kindTranscript
		if v := t.CDSGenomeStart(); v.Valid {
			r.cdsGenomeStart = sql.NullInt64{Int64: int64(v.Int), Valid: true}
		}
		if v := t.CDSGenomeEnd(); v.Valid {
			r.cdsGenomeEnd = sql.NullInt64{Int64: int64(v.Int), Valid: true}
		}
	}
	return r, nil
}

func (r *featureRow) feature() (roi.Feature, error) {
	strand := roi.StrandUnstranded
	if r.strand != "" {
		var err error
		if strand, err = roi.ParseStrand(r.strand); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.id, err)
		}
	}
	segs, err := decodeSegments(r.chrom, strand, r.segments)
	if err != nil {
		return nil, fmt.Errorf("decode segments of %s: %w", r.id, err)
	}
	masks, err := decodeSegments(r.chrom, strand, r.masks)
	if err != nil {
		return nil, fmt.Errorf("decode masks of %s: %w", r.id, err)
	}
	attr := roi.NewAttributes()
	if err := json.Unmarshal([]byte(r.attributes), attr); err != nil {
		return nil, fmt.Errorf("decode attributes of %s: %w", r.id, err)
	}

	if r.kind == kindTranscript {
		attr.Delete(roi.KeyCDSGenomeStart)
		attr.Delete(roi.KeyCDSGenomeEnd)
		if r.cdsGenomeStart.Valid && r.cdsGenomeEnd.Valid {
			attr.SetInt(roi.KeyCDSGenomeStart, int(r.cdsGenomeStart.Int64))
			attr.SetInt(roi.KeyCDSGenomeEnd, int(r.cdsGenomeEnd.Int64))
		}
		t, err := roi.NewTranscript(attr, segs...)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.id, err)
		}
		if err := t.AddMasks(masks...); err != nil {
			return nil, fmt.Errorf("decode masks of %s: %w", r.id, err)
		}
		return t, nil
	}

	c, err := roi.NewChain(attr, segs...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.id, err)
	}
	if err := c.AddMasks(masks...); err != nil {
		return nil, fmt.Errorf("decode masks of %s: %w", r.id, err)
	}
	return c, nil
}

// WriteFeatures inserts features in one transaction, replacing any stored
// feature with the same name.
func (s *Store) WriteFeatures(features []roi.Feature) error {
	if len(features) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO features (` + featureColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		r, err := toRow(f)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(r.args()...); err != nil {
			return fmt.Errorf("insert feature %s: %w", r.id, err)
		}
	}
	return tx.Commit()
}

// AppendFeatures bulk-loads features using the Appender API. It is faster
// than WriteFeatures but fails if a name is already stored.
func (s *Store) AppendFeatures(features []roi.Feature) error {
	if len(features) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, f := range features {
		r, err := toRow(f)
		if err != nil {
			return err
		}
		vals := r.args()
		row := make([]driver.Value, len(vals))
		for i, v := range vals {
			row[i] = v
		}
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append feature %s: %w", r.id, err)
		}
	}

	return appender.Flush()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeature(rows rowScanner) (roi.Feature, error) {
	var r featureRow
	if err := rows.Scan(
		&r.id, &r.kind, &r.chrom, &r.strand, &r.start, &r.end,
		&r.segments, &r.masks, &r.attributes,
		&r.cdsGenomeStart, &r.cdsGenomeEnd,
	); err != nil {
		return nil, fmt.Errorf("scan feature: %w", err)
	}
	return r.feature()
}

// LookupFeature returns the feature stored under id.
func (s *Store) LookupFeature(id string) (roi.Feature, error) {
	row := s.db.QueryRow(`SELECT `+featureColumns+` FROM features WHERE id = ?`, id)
	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %s: %w", id, ErrNotFound)
	}
	return f, err
}

// FeaturesByChrom returns the features on chrom ordered by position.
func (s *Store) FeaturesByChrom(chrom string) ([]roi.Feature, error) {
	return s.query(`SELECT `+featureColumns+` FROM features WHERE chrom = ? ORDER BY start_pos, end_pos, id`, chrom)
}

// Features returns every stored feature ordered by chromosome and position.
func (s *Store) Features() ([]roi.Feature, error) {
	return s.query(`SELECT ` + featureColumns + ` FROM features ORDER BY chrom, start_pos, end_pos, id`)
}

// FeaturesOverlapping returns the features whose span overlaps
// [start, end) on chrom. Callers needing exact overlap test the segments.
func (s *Store) FeaturesOverlapping(chrom string, start, end int) ([]roi.Feature, error) {
	return s.query(`SELECT `+featureColumns+` FROM features
		WHERE chrom = ? AND start_pos < ? AND end_pos > ?
		ORDER BY start_pos, end_pos, id`, chrom, int64(end), int64(start))
}

func (s *Store) query(q string, args ...any) ([]roi.Feature, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var out []roi.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return out, nil
}

// Count returns the number of stored features.
func (s *Store) Count() (int, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return int(n), nil
}

// Clear removes all stored features and source records.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM features"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM sources")
	return err
}
