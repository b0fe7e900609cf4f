package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"blog/logger"
	"blog/models"
	"blog/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

type RegisterInput struct {
	Username  string `form:"username" json:"username" validate:"required,max=150,username"`
	Password  string `form:"password" json:"password" validate:"required,min=8,max=128"`
	FirstName string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" json:"last_name" validate:"max=150"`
}

type AuthService struct {
	store *store.Store
}

func NewAuthService(st *store.Store) *AuthService {
	return &AuthService{store: st}
}

// HashPassword - argon2id, формат hex(salt)$hex(hash)
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// CheckPassword сверяет пароль с хешем из HashPassword
func CheckPassword(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, stored) == 1
}

func newToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(tokenBytes), nil
}

// Register создает пользователя
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	verr := &ValidationError{}
	if err := validateStruct(in, verr); err != nil {
		return nil, err
	}
	if _, bad := verr.Fields["username"]; !bad && in.Username != "" {
		taken, err := s.store.UsernameTaken(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("username", "A user with that username already exists.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logger.L.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login проверяет пароль и выдает новый токен; старые токены пользователя удаляются
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !CheckPassword(user.Password, password) {
		return "", nil, ErrInvalidCredentials
	}

	if err := s.store.DeleteTokens(ctx, user.ID); err != nil {
		return "", nil, err
	}
	token, err := newToken()
	if err != nil {
		return "", nil, err
	}
	if err := s.store.CreateToken(ctx, user.ID, token); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, viewer *models.User) error {
	if viewer == nil {
		return ErrAuthRequired
	}
	return s.store.DeleteTokens(ctx, viewer.ID)
}

// Authenticate находит пользователя по токену
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}
	user, err := s.store.UserByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAuthRequired
	}
	return user, err
}
