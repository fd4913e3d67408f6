package repository

import (
	sq "github.com/Masterminds/squirrel"
)

// psql builds Postgres-flavoured statements ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Page is an offset/limit window shared by list queries.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if p.Limit > 0 {
		b = b.Limit(uint64(p.Limit))
	}
	if p.Offset > 0 {
		b = b.Offset(uint64(p.Offset))
	}
	return b
}
