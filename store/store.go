package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence gateway shared by every component. It wraps a
// pgx pool the same way the teacher's repositories wrap theirs, but is a
// single type because Code Court's entities are tightly coupled (Run joins
// User/Contest/Language/Problem on nearly every query) rather than one
// repository per aggregate.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
