package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// columnFor maps descriptor field names onto servers columns.
var columnFor = map[string]string{
	"ip":                   "ip",
	"port":                 "port",
	"hostname":             "hostname",
	"description":          "description",
	"version.name":         "version_name",
	"version.protocol":     "version_protocol",
	"players.online":       "players_online",
	"players.max":          "players_max",
	"players.sample":       "sample_json",
	"players.sample_count": "sample_count",
	"lastSeen":             "last_seen",
	"cracked":              "cracked",
	"whitelist":            "whitelist",
	"geo.country":          "geo_country",
	"geo.city":             "geo_city",
}

// Count returns the result-set size of a descriptor, honoring its limit
// or sample bound. Literal descriptors are the renderer's concern, not the
// store's.
func (s *Store) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	if d.IsLiteral() {
		return 1, nil
	}

	where, args, err := buildWhere(d)
	if err != nil {
		return 0, err
	}

	var total int
	q := "SELECT COUNT(*) FROM servers" + where
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count servers: %w", err)
	}

	if bound, ok := d.LimitValue(); ok && total > bound {
		total = bound
	}
	return total, nil
}

// RecordAt returns the record at a zero-based index of the descriptor's
// result set, or nil when the index is past the end.
func (s *Store) RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error) {
	if d.IsLiteral() {
		if index != 0 {
			return nil, nil
		}
		return d.Literal, nil
	}
	if index < 0 {
		return nil, nil
	}
	if bound, ok := d.LimitValue(); ok && index >= bound {
		return nil, nil
	}

	where, args, err := buildWhere(d)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(d)
	if err != nil {
		return nil, err
	}

	q := "SELECT " + recordColumns + " FROM servers" + where + order + " LIMIT 1 OFFSET ?"
	args = append(args, index)

	row := s.db.QueryRowContext(ctx, q, args...)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// buildWhere translates every match stage into one conjunctive WHERE clause.
func buildWhere(d *query.Descriptor) (string, []any, error) {
	var clauses []string
	var args []any

	for _, stage := range d.Stages {
		for _, cond := range stage.Match {
			clause, condArgs, err := translateCond(cond)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, condArgs...)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func translateCond(c query.Condition) (string, []any, error) {
	// favicon presence is a derived field, not a column
	if c.Field == "hasFavicon" {
		want, _ := c.DecodedValue().(bool)
		if want {
			return "favicon IS NOT NULL", nil, nil
		}
		return "favicon IS NULL", nil, nil
	}

	col, ok := columnFor[c.Field]
	if !ok {
		return "", nil, errors.NewMalformedState(fmt.Sprintf("unknown field %q", c.Field))
	}

	val := c.DecodedValue()
	if b, ok := val.(bool); ok {
		val = boolToInt(b)
	}

	switch c.Op {
	case query.OpEq:
		return col + " = ?", []any{val}, nil
	case query.OpNe:
		return col + " != ?", []any{val}, nil
	case query.OpGt:
		return col + " > ?", []any{val}, nil
	case query.OpLt:
		return col + " < ?", []any{val}, nil
	case query.OpContains:
		// instr avoids LIKE wildcard escaping
		return "instr(COALESCE(" + col + ", ''), ?) > 0", []any{fmt.Sprintf("%v", val)}, nil
	}
	return "", nil, errors.NewMalformedState(fmt.Sprintf("unknown op %q", c.Op))
}

// buildOrder translates the sort-like stage. A sample stage orders by a
// scrambled rowid so the "random" draw is stable across re-renders of the
// same descriptor.
func buildOrder(d *query.Descriptor) (string, error) {
	for _, stage := range d.Stages {
		if stage.Sort != nil {
			col, ok := columnFor[stage.Sort.Field]
			if !ok {
				return "", errors.NewMalformedState(fmt.Sprintf("unknown sort field %q", stage.Sort.Field))
			}
			dir := " ASC"
			if stage.Sort.Desc {
				dir = " DESC"
			}
			return " ORDER BY " + col + dir + ", id", nil
		}
		if stage.Sample != nil {
			return " ORDER BY (rowid * 48271) % 2147483647", nil
		}
	}
	// deterministic default so paging never skips records
	return " ORDER BY id", nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
