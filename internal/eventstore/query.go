package eventstore

import (
	"strings"
)

func buildQuery(project string, opts QueryOptions) (string, []any) {
	where, args := whereClause(project, opts)
	order := "ASC"
	if opts.Descending {
		order = "DESC"
	}
	q := "SELECT id, sequence, project, type, timestamp_ms, stream_kind, stream_id, body FROM events" +
		where + " ORDER BY sequence " + order
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return q, args
}

func buildCountQuery(project string, opts QueryOptions) (string, []any) {
	where, args := whereClause(project, opts)
	return "SELECT COUNT(*) FROM events" + where, args
}

func whereClause(project string, opts QueryOptions) (string, []any) {
	clauses := []string{"project = ?"}
	args := []any{project}

	if len(opts.Types) > 0 {
		placeholders := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		clauses = append(clauses, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if opts.StreamKind != "" {
		clauses = append(clauses, "stream_kind = ?")
		args = append(args, opts.StreamKind)
	}
	if opts.StreamID != "" {
		clauses = append(clauses, "stream_id = ?")
		args = append(args, opts.StreamID)
	}
	if opts.AfterSequence > 0 {
		clauses = append(clauses, "sequence > ?")
		args = append(args, opts.AfterSequence)
	}
	if !opts.Since.IsZero() {
		clauses = append(clauses, "timestamp_ms >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if !opts.Until.IsZero() {
		clauses = append(clauses, "timestamp_ms <= ?")
		args = append(args, opts.Until.UnixMilli())
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
