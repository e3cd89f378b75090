package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/observability/metrics"
	"concord/internal/store"
	"concord/internal/wordlist"
)

// AuthService owns the token lifecycle: opaque refresh tokens (30 days,
// rotated past 23) and the short-lived access tokens minted under them.
type AuthService struct {
	store *store.Store
	cache cache.Cache
	now   func() time.Time

	registrationOpen bool
}

func NewAuthService(st *store.Store, c cache.Cache, registrationOpen bool) *AuthService {
	return &AuthService{
		store:            st,
		cache:            c,
		now:              func() time.Time { return time.Now().UTC() },
		registrationOpen: registrationOpen,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

func randomHex(nbytes int) string {
	buf := make([]byte, nbytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // entropy exhaustion is not recoverable
	}
	return hex.EncodeToString(buf)
}

func (a *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, *TokenPair, error) {
	if !a.registrationOpen {
		return nil, nil, fmt.Errorf("%w: registration closed", domain.ErrForbidden)
	}
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.ValidateUsername(username); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	now := a.now()
	user := &domain.User{
		ID:           domain.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.Users().Create(ctx, user); err != nil {
		// Unique constraint on username or email.
		return nil, nil, fmt.Errorf("%w: username or email taken", domain.ErrBadRequest)
	}

	pair, err := a.mint(ctx, user.ID, wordlist.DeviceName())
	if err != nil {
		return nil, nil, err
	}
	slog.Info("user registered", "user_id", user.ID, "username", username)
	return user, pair, nil
}

// Login resolves the identifier as an email when it contains '@' and a
// username otherwise. Either failure mode surfaces as the same Unauthorized.
func (a *AuthService) Login(ctx context.Context, identifier, password, deviceName string) (*domain.User, *TokenPair, error) {
	var (
		user *domain.User
		err  error
	)
	if strings.ContainsRune(identifier, '@') {
		user, err = a.store.Users().GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = a.store.Users().GetByUsername(ctx, strings.ToLower(identifier))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wrong credentials", domain.ErrUnauthorized)
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: wrong credentials", domain.ErrUnauthorized)
	}

	deviceName = strings.TrimSpace(deviceName)
	if deviceName == "" {
		deviceName = wordlist.DeviceName()
	}
	pair, err := a.mint(ctx, user.ID, deviceName)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// mint creates a fresh refresh+access pair bound to one device.
func (a *AuthService) mint(ctx context.Context, userID domain.UserID, deviceName string) (*TokenPair, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("issue", result).Inc()
	}()

	refresh := &domain.RefreshToken{
		Token:      randomHex(32),
		UserID:     userID,
		CreatedAt:  a.now().Unix(),
		DeviceName: deviceName,
	}
	if err := a.store.Tokens().CreateRefresh(ctx, refresh); err != nil {
		result = "failure"
		return nil, err
	}
	access, err := a.mintAccess(ctx, refresh)
	if err != nil {
		result = "failure"
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token}, nil
}

func (a *AuthService) mintAccess(ctx context.Context, refresh *domain.RefreshToken) (string, error) {
	at := &domain.AccessToken{
		Token:        randomHex(16),
		RefreshToken: refresh.Token,
		UserID:       refresh.UserID,
		CreatedAt:    a.now().Unix(),
	}
	if err := a.store.Tokens().CreateAccess(ctx, at); err != nil {
		return "", err
	}
	return at.Token, nil
}

// VerifyAccess resolves an access token to its user. Expired rows are
// rejected but left in place; the refresh path clears them in bulk.
func (a *AuthService) VerifyAccess(ctx context.Context, token string) (domain.UserID, error) {
	at, err := a.store.Tokens().GetAccess(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UserID{}, fmt.Errorf("%w: bad access token", domain.ErrUnauthorized)
		}
		return domain.UserID{}, err
	}
	if at.Expired(a.now()) {
		return domain.UserID{}, fmt.Errorf("%w: access token expired", domain.ErrUnauthorized)
	}
	return at.UserID, nil
}

// Refresh exchanges a refresh token for a fresh access token. From 23 days
// of age the refresh token itself is rotated; at 30 days it is dead.
func (a *AuthService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()

	rt, err := a.store.Tokens().GetRefresh(ctx, token)
	if err != nil {
		result = "failure"
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", domain.ErrUnauthorized)
		}
		return nil, err
	}

	now := a.now()
	age := rt.Age(now)
	if age >= domain.RefreshTokenTTL {
		result = "failure"
		if err := a.store.Tokens().DeleteRefresh(ctx, rt.Token); err != nil {
			slog.Error("delete expired refresh token", "error", err)
		}
		return nil, fmt.Errorf("%w: refresh token expired", domain.ErrUnauthorized)
	}

	// Every refresh invalidates all access tokens under this refresh token.
	if err := a.store.Tokens().DeleteAccessByRefresh(ctx, rt.Token); err != nil {
		result = "failure"
		return nil, err
	}

	if age >= domain.RefreshRotateAfter {
		fresh := &domain.RefreshToken{
			Token:      randomHex(32),
			UserID:     rt.UserID,
			CreatedAt:  now.Unix(),
			DeviceName: rt.DeviceName,
		}
		if err := a.store.Tokens().RotateRefresh(ctx, rt, fresh); err != nil {
			result = "failure"
			return nil, err
		}
		slog.Debug("rotated refresh token", "user_id", rt.UserID, "device", rt.DeviceName)
		rt = fresh
	}

	access, err := a.mintAccess(ctx, rt)
	if err != nil {
		result = "failure"
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: rt.Token}, nil
}

// Logout kills one refresh token and, by cascade, its access tokens.
func (a *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return a.store.Tokens().DeleteRefresh(ctx, refreshToken)
}

// Revoke deletes every refresh token for one of the caller's devices after
// re-proving the password.
func (a *AuthService) Revoke(ctx context.Context, userID domain.UserID, password, deviceName string) error {
	user, err := a.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return fmt.Errorf("%w: wrong password", domain.ErrUnauthorized)
	}
	return a.store.Tokens().DeleteRefreshByDevice(ctx, userID, deviceName)
}

// Devices lists the caller's live refresh tokens by device.
func (a *AuthService) Devices(ctx context.Context, userID domain.UserID) ([]domain.RefreshToken, error) {
	return a.store.Tokens().ListRefreshByUser(ctx, userID)
}
