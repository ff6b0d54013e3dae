package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetConfiguration(ctx context.Context, key string) (Configuration, error) {
	var c Configuration
	err := s.pool.QueryRow(ctx, `SELECT key, val, val_type, category FROM configuration WHERE key = $1`, key).
		Scan(&c.Key, &c.Val, &c.ValType, &c.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return Configuration{}, ErrNotFound
	}
	if err != nil {
		return Configuration{}, fmt.Errorf("store: get configuration %s: %w", key, err)
	}
	return c, nil
}

func (s *Store) SetConfiguration(ctx context.Context, c Configuration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO configuration (key, val, val_type, category)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (key) DO UPDATE SET val = EXCLUDED.val, val_type = EXCLUDED.val_type, category = EXCLUDED.category
	`, c.Key, c.Val, c.ValType, c.Category)
	if err != nil {
		return fmt.Errorf("store: set configuration %s: %w", c.Key, err)
	}
	return nil
}

func (s *Store) AllConfiguration(ctx context.Context) ([]Configuration, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, val, val_type, category FROM configuration ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: all configuration: %w", err)
	}
	defer rows.Close()
	var out []Configuration
	for rows.Next() {
		var c Configuration
		if err := rows.Scan(&c.Key, &c.Val, &c.ValType, &c.Category); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
