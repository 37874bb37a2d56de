package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/buildgov/internal/ir"
)

// Predicate is a filter condition compiled to a parameterized WHERE
// fragment. Only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose column equals a value.
type Equals struct {
	Column string
	Value  ir.IRValue
}

func (Equals) predicateNode() {}

// After matches rows whose column is strictly greater than Value.
type After struct {
	Column string
	Value  int64
}

func (After) predicateNode() {}

// And matches rows satisfying every predicate. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// selectQuery reads columns from one log table. Every compiled query is
// ordered, with id COLLATE BINARY as the final tiebreaker, so reads are
// deterministic.
type selectQuery struct {
	Columns string
	From    string
	Filter  Predicate // nil = no filter
	OrderBy []string  // leading sort keys, before the id tiebreaker
	Limit   int       // 0 = no limit
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// compile returns the SQL and its parameters. Values are never
// interpolated.
func (q selectQuery) compile() (string, []any, error) {
	if !identifierPattern.MatchString(q.From) {
		return "", nil, fmt.Errorf("invalid table name %q", q.From)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", q.Columns, q.From)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = p
	}

	keys := make([]string, 0, len(q.OrderBy)+1)
	for _, col := range q.OrderBy {
		if !identifierPattern.MatchString(col) {
			return "", nil, fmt.Errorf("invalid order column %q", col)
		}
		keys = append(keys, col+" ASC")
	}
	keys = append(keys, "id COLLATE BINARY ASC")
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(keys, ", "))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if !identifierPattern.MatchString(pred.Column) {
			return "", nil, fmt.Errorf("invalid column %q", pred.Column)
		}
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", pred.Column, err)
		}
		return pred.Column + " = ?", []any{param}, nil
	case After:
		if !identifierPattern.MatchString(pred.Column) {
			return "", nil, fmt.Errorf("invalid column %q", pred.Column)
		}
		return pred.Column + " > ?", []any{pred.Value}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		return strings.Join(parts, " AND "), params, nil
	case nil:
		return "", nil, fmt.Errorf("nil predicate")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}

// valueToParam converts a scalar IRValue to a SQL parameter.
func valueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("%s cannot be used as a SQL parameter", ir.TypeName(v))
	}
}
