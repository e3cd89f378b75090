package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/store"
)

// MailSender delivers plain-text transactional mail.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailService runs the verification and password-reset flows. Tokens live
// only in the cache: a lost token after a restart just means requesting the
// mail again.
type EmailService struct {
	store       *store.Store
	cache       cache.Cache
	mail        MailSender
	log         *slog.Logger
	instance    string
	frontendURL string
	now         func() time.Time
}

func NewEmailService(st *store.Store, c cache.Cache, mail MailSender, log *slog.Logger, instance, frontendURL string) *EmailService {
	return &EmailService{
		store:       st,
		cache:       c,
		mail:        mail,
		log:         log,
		instance:    instance,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// tokenClaim is the reverse record stored under the token itself so the mail
// link alone, without a session, identifies the account and the flow.
type tokenClaim struct {
	UserID  domain.UserID `json:"user_uuid"`
	Purpose string        `json:"purpose"`
}

const (
	purposeVerify = "email_verify"
	purposeReset  = "password_reset"
)

// RequestVerification mails a fresh verification link. A second request
// within the cooldown window is refused.
func (e *EmailService) RequestVerification(ctx context.Context, userID domain.UserID) error {
	user, err := e.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: email already verified", domain.ErrBadRequest)
	}
	if err := e.checkCooldown(ctx, cache.KeyEmailVerify(userID)); err != nil {
		return err
	}

	token := randomHex(32)
	if err := e.storeToken(ctx, cache.KeyEmailVerify(userID), token, tokenClaim{UserID: userID, Purpose: purposeVerify}); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nconfirm your email address for %s:\n\n%s/verify-email?token=%s\n\nThe link is valid for 24 hours. If you did not sign up, ignore this mail.\n",
		user.Username, e.instance, e.frontendURL, token)
	return e.mail.Send(ctx, user.Email, e.instance+": verify your email", body)
}

// ConfirmVerification redeems a verification token from the mail link.
func (e *EmailService) ConfirmVerification(ctx context.Context, token string) error {
	claim, err := e.redeemToken(ctx, token, purposeVerify)
	if err != nil {
		return err
	}
	if err := e.store.Users().SetEmailVerified(ctx, claim.UserID); err != nil {
		return err
	}
	return e.cache.Delete(ctx, cache.KeyEmailVerify(claim.UserID), cache.KeyResetToken(token))
}

// RequestPasswordReset mails a reset link. An unknown address is reported as
// success so the endpoint cannot be used to probe for accounts.
func (e *EmailService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := e.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			e.log.Info("password reset for unknown address", slog.String("email", email))
			return nil
		}
		return err
	}
	if err := e.checkCooldown(ctx, cache.KeyPasswordReset(user.ID)); err != nil {
		return err
	}

	token := randomHex(32)
	if err := e.storeToken(ctx, cache.KeyPasswordReset(user.ID), token, tokenClaim{UserID: user.ID, Purpose: purposeReset}); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nreset your %s password:\n\n%s/reset-password?token=%s\n\nThe link is valid for 24 hours. If you did not ask for this, ignore this mail.\n",
		user.Username, e.instance, e.frontendURL, token)
	return e.mail.Send(ctx, user.Email, e.instance+": password reset", body)
}

// CheckResetToken reports whether a reset token is still live without
// consuming it.
func (e *EmailService) CheckResetToken(ctx context.Context, token string) error {
	_, err := e.redeemToken(ctx, token, purposeReset)
	return err
}

// ResetPassword redeems a reset token and installs the new password. Every
// session of the account is revoked.
func (e *EmailService) ResetPassword(ctx context.Context, token, password string) error {
	if err := domain.ValidatePassword(password); err != nil {
		return err
	}
	claim, err := e.redeemToken(ctx, token, purposeReset)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := e.store.Users().SetPasswordHash(ctx, claim.UserID, hash); err != nil {
		return err
	}
	sessions, err := e.store.Tokens().ListRefreshByUser(ctx, claim.UserID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if err := e.store.Tokens().DeleteRefresh(ctx, s.Token); err != nil {
			return err
		}
	}
	return e.cache.Delete(ctx, cache.KeyPasswordReset(claim.UserID), cache.KeyResetToken(token))
}

// checkCooldown refuses a fresh mail while the previous token is younger
// than the cooldown window.
func (e *EmailService) checkCooldown(ctx context.Context, key string) error {
	remaining, err := e.cache.TTL(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return err
	}
	if remaining > cache.TTLEmailToken-cache.ResendCooldown {
		return fmt.Errorf("%w: a mail was sent recently, try again later", domain.ErrTooManyRequests)
	}
	return nil
}

func (e *EmailService) storeToken(ctx context.Context, userKey, token string, claim tokenClaim) error {
	// Drop the previous token's reverse record so only one link is live.
	var old string
	if err := e.cache.Get(ctx, userKey, &old); err == nil {
		_ = e.cache.Delete(ctx, cache.KeyResetToken(old))
	}
	if err := e.cache.Set(ctx, userKey, token, cache.TTLEmailToken); err != nil {
		return err
	}
	return e.cache.Set(ctx, cache.KeyResetToken(token), claim, cache.TTLEmailToken)
}

func (e *EmailService) redeemToken(ctx context.Context, token, purpose string) (*tokenClaim, error) {
	var claim tokenClaim
	if err := e.cache.Get(ctx, cache.KeyResetToken(token), &claim); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("%w: link expired or already used", domain.ErrGone)
		}
		return nil, err
	}
	if claim.Purpose != purpose {
		return nil, fmt.Errorf("%w: link expired or already used", domain.ErrGone)
	}
	return &claim, nil
}
