// Package services contains server-side business logic. This file implements
// UserService, the session core: signup, signin, refresh token rotation,
// logout and the authorization check run on every protected request.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/auth"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

// User-facing validation messages.
const (
	msgCredentialsRequired  = "Login and password are required"
	msgLoginTooShort        = "Login must be at least 3 characters long"
	msgPasswordTooShort     = "Password must be at least 6 characters long"
	msgPasswordTooLong      = "Password must be at most 72 bytes long"
	msgRefreshTokenRequired = "Refresh token is required"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService provides authentication-related operations. Access and refresh
// tokens are signed with different secrets.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	log                          logging.Logger
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	hashCost                     int
	now                          func() time.Time

	dummyHashOnce sync.Once
	dummyHash     []byte
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		log:                          log.With("module", "users"),
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		hashCost:                     cfg.PasswordHashCost,
		now:                          time.Now,
	}
}

// Signup registers a new user and returns the first token pair. The user row
// and its refresh token are written in one transaction.
func (s *UserService) Signup(ctx context.Context, login, password string) (*TokenPair, error) {
	login = strings.TrimSpace(login)
	if err := validateSignup(login, password); err != nil {
		return nil, err
	}

	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, login)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		pair *TokenPair
		user *models.User
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{Login: login, PasswordHash: string(hash)})
		if err != nil {
			return err
		}

		var expiresAt time.Time
		pair, expiresAt, err = s.generateTokenPair(user.ID)
		if err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, pair.RefreshToken, expiresAt)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return pair, nil
}

// Signin verifies credentials and issues a new token pair, replacing the
// user's stored refresh token. Unknown logins and wrong passwords both yield
// common.ErrorUnauthorized after a bcrypt comparison of similar cost.
func (s *UserService) Signin(ctx context.Context, login, password string) (*TokenPair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, common.NewValidationError(msgCredentialsRequired)
	}

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.getDummyHash(), []byte(password))
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	pair, expiresAt, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.RefreshTokens(s.db).Save(ctx, user.ID, pair.RefreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return pair, nil
}

// RefreshToken exchanges a refresh token for a new pair. The stored token is
// replaced with a single conditional update, so a token is accepted at most
// once even under concurrent redemption.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.NewValidationError(msgRefreshTokenRequired)
	}

	info, err := auth.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	pair, expiresAt, err := s.generateTokenPair(info.UserID)
	if err != nil {
		return nil, err
	}

	err = s.repomanager.RefreshTokens(s.db).Rotate(ctx, info.UserID, refreshToken, pair.RefreshToken, expiresAt, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh token rejected", "user_id", info.UserID)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}

	return pair, nil
}

// Logout ends the session. The access token, when given, is blocked until it
// expires and all refresh tokens of the user are deleted. Without an access
// token only the given refresh token is deleted, and only if it is still the
// current one. Either token may be omitted but not both. Logging out twice is
// not an error.
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" && refreshToken == "" {
		return common.NewValidationError(msgRefreshTokenRequired)
	}

	var (
		userID        int64
		accessExpires time.Time
	)

	if accessToken != "" {
		info, err := auth.ParseToken(accessToken, s.accessSecret)
		if err != nil {
			return common.ErrorUnauthorized
		}
		userID = info.UserID
		accessExpires = info.ExpiresAt
	}

	if refreshToken != "" {
		info, err := auth.ParseToken(refreshToken, s.refreshSecret)
		if err != nil {
			return common.ErrorUnauthorized
		}
		if userID != 0 && userID != info.UserID {
			return common.ErrorForbidden
		}
		userID = info.UserID
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if accessToken != "" {
			if err := s.repomanager.BlockedTokens(tx).Block(ctx, accessToken, accessExpires); err != nil {
				return err
			}
		}
		ledger := s.repomanager.RefreshTokens(tx)
		if accessToken != "" {
			return ledger.DeleteByUser(ctx, userID)
		}
		// A refresh token alone only revokes itself; one that was already
		// rotated away must not end the session that replaced it.
		if _, err := ledger.FindByTokenAndUser(ctx, refreshToken, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		return ledger.DeleteByToken(ctx, refreshToken)
	})
	if err != nil {
		return fmt.Errorf("error logging out: %w", err)
	}

	s.log.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// Authorize resolves the user behind an access token. A blocked token yields
// common.ErrTokenBlocked; a bad signature or expired token yields the codec
// error; a missing token or a deleted user yields common.ErrorUnauthorized.
func (s *UserService) Authorize(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, common.ErrorUnauthorized
	}

	blocked, err := s.repomanager.BlockedTokens(s.db).IsBlocked(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("error checking blocklist: %w", err)
	}
	if blocked {
		return nil, common.ErrTokenBlocked
	}

	info, err := auth.ParseToken(accessToken, s.accessSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	return user, nil
}

// PurgeExpired deletes blocklist entries and refresh tokens whose expiry has
// passed.
func (s *UserService) PurgeExpired(ctx context.Context) (blocked, refresh int64, err error) {
	now := s.now()

	blocked, err = s.repomanager.BlockedTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("error purging blocked tokens: %w", err)
	}

	refresh, err = s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return blocked, 0, fmt.Errorf("error purging refresh tokens: %w", err)
	}

	return blocked, refresh, nil
}

// --- helpers below ---

func validateSignup(login, password string) error {
	if login == "" || password == "" {
		return common.NewValidationError(msgCredentialsRequired)
	}
	if utf8.RuneCountInString(login) < common.MinLoginLength {
		return common.NewValidationError(msgLoginTooShort)
	}
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return common.NewValidationError(msgPasswordTooShort)
	}
	if len(password) > maxPasswordBytes {
		return common.NewValidationError(msgPasswordTooLong)
	}
	return nil
}

func (s *UserService) getDummyHash() []byte {
	s.dummyHashOnce.Do(func() {
		secret := common.GenerateRandByteArray(16)
		defer common.WipeByteArray(secret)
		hash, err := bcrypt.GenerateFromPassword(secret, s.hashCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *UserService) generateTokenPair(userID int64) (*TokenPair, time.Time, error) {
	access, err := auth.GenerateToken(userID, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, time.Time{}, common.ErrorInternal
	}
	refresh, err := auth.GenerateToken(userID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, time.Time{}, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, s.now().Add(s.refreshTokenValidityDuration), nil
}
