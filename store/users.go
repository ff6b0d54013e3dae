package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CreateUserParams struct {
	Username     string
	Name         string
	PasswordHash string
	MiscData     []byte
	Roles        []Role
}

func (s *Store) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("store: begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO users (username, name, password_hash, misc_data)
		VALUES ($1, $2, $3, COALESCE($4, '{}'::jsonb))
		RETURNING id, username, name, password_hash, creation_time, misc_data
	`
	var u User
	row := tx.QueryRow(ctx, insertSQL, p.Username, p.Name, p.PasswordHash, p.MiscData)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreationTime, &u.MiscData); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return User{}, fmt.Errorf("%w: username already exists", ErrIntegrity)
		}
		return User{}, fmt.Errorf("store: create user: %w", err)
	}

	for _, role := range p.Roles {
		if _, err := tx.Exec(ctx, `INSERT INTO user_user_role (user_id, role) VALUES ($1, $2)`, u.ID, role); err != nil {
			return User{}, fmt.Errorf("store: assign role %s: %w", role, err)
		}
	}
	u.Roles = p.Roles

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("store: commit create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const selectSQL = `SELECT id, username, name, password_hash, creation_time, misc_data FROM users WHERE username = $1`
	var u User
	err := s.pool.QueryRow(ctx, selectSQL, username).Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreationTime, &u.MiscData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("store: get user by username: %w", err)
	}
	u.Roles, err = s.rolesForUser(ctx, u.ID)
	return u, err
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (User, error) {
	const selectSQL = `SELECT id, username, name, password_hash, creation_time, misc_data FROM users WHERE id = $1`
	var u User
	err := s.pool.QueryRow(ctx, selectSQL, id).Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CreationTime, &u.MiscData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("store: get user by id: %w", err)
	}
	u.Roles, err = s.rolesForUser(ctx, u.ID)
	return u, err
}

func (s *Store) rolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT role FROM user_user_role WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: roles for user: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// ContestsForUser returns the ids of contests a user is enrolled in.
func (s *Store) ContestsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT contest_id FROM contest_user WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: contests for user: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) EnrollUserInContest(ctx context.Context, userID, contestID int64) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO contest_user (contest_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, contestID, userID)
	if err != nil {
		return fmt.Errorf("store: enroll user in contest: %w", err)
	}
	return nil
}
