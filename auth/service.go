// Package auth handles credential hashing, login and bearer-token
// verification for Code Court's five roles. It reads and writes Users
// through store.Store directly rather than through its own repository: the
// teacher's separate auth.Repository exists because its User never leaves
// the auth domain, but a Code Court User is joined against Run/Contest
// constantly, so one persistence gateway (store.Store) serves every
// component instead of duplicating User access behind two layers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"codecourt/store"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
)

// userStore is the narrow slice of store.Store that auth depends on,
// mirrored after the teacher's fakeable Repository interface so tests can
// substitute an in-memory implementation instead of a real database.
type userStore interface {
	CreateUser(ctx context.Context, p store.CreateUserParams) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
}

type Service struct {
	store     userStore
	jwtSecret []byte
}

func NewService(s userStore, jwtSecret string) *Service {
	return &Service{store: s, jwtSecret: []byte(jwtSecret)}
}

// Register creates a new user account with the given roles.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if req.Username == "" || req.Name == "" {
		return nil, fmt.Errorf("auth: username and name are required")
	}
	for _, r := range req.Roles {
		if !store.ValidRole(r) {
			return nil, fmt.Errorf("auth: invalid role %q", r)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: string(hash),
		MiscData:     req.MiscData,
		Roles:        req.Roles,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates a defendant by username/password and mints a bearer
// token. Executor credentials are verified separately via basic auth
// (VerifyBasic) since they never receive a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// VerifyBasic checks HTTP basic credentials against a User with role
// executioner, the way an executor worker authenticates to get-writ.
func (s *Service) VerifyBasic(ctx context.Context, username, password string) (store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, err
	}
	if !user.HasRole(store.RoleExecutioner) {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// VerifyToken validates a bearer token and returns the bound user id.
func (s *Service) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("auth: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid token")
	}
	idFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("auth: invalid user_id in token")
	}
	return int64(idFloat), nil
}

func (s *Service) generateToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Service) GetUserByID(ctx context.Context, userID int64) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
