package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/plugins/audit"
)

// resetTokenBytes is the number of random bytes in a reset token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const resetTokenBytes = 32

// RequestPasswordReset generates a single-use reset token for the account
// with the given email, stores only its SHA-256 hash, and emails the
// plaintext token as a reset link. A repeat request overwrites the previous
// token. The email leaving the building is best-effort: a delivery failure
// does not roll back the stored token.
//
// An unknown email is reported to the caller as a 404 rather than hidden.
func (s *authService) RequestPasswordReset(ctx context.Context, email, remoteIP string) error {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return apperror.NewUnknownAccount()
		}
		return apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	plain, err := generateResetToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.repo.SetResetToken(ctx, account.ID, hashToken(plain), expiresAt); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset token: %w", err))
	}

	s.sendResetEmail(ctx, account, plain)

	s.record(ctx, account.ID, audit.ActionResetRequested, remoteIP, nil)

	slog.Info("password reset requested",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
	)

	return nil
}

// ResetPassword redeems a plaintext reset token: it hashes the token, finds
// the account holding an unexpired matching hash, replaces the password,
// and clears the reset state. Wrong, expired, and already-used tokens are
// indistinguishable to the caller. Returns a fresh bearer token so the
// client is logged in immediately.
func (s *authService) ResetPassword(ctx context.Context, plainToken, newPassword string) (*AuthResult, error) {
	account, err := s.repo.FindByResetTokenHash(ctx, hashToken(plainToken), s.now().UTC())
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewInvalidResetToken()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account by reset token: %w", err))
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	// UpdatePassword clears the reset token columns in the same statement,
	// so the token can't be redeemed twice. Second precision matches the
	// token issued-at granularity.
	changedAt := s.now().UTC().Truncate(time.Second)
	if err := s.repo.UpdatePassword(ctx, account.ID, hash, changedAt); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt
	account.ResetTokenHash = nil
	account.ResetTokenExpiresAt = nil

	s.record(ctx, account.ID, audit.ActionResetRedeemed, "", nil)

	slog.Info("password reset redeemed", slog.String("account_id", account.ID))

	return s.issueResult(account)
}

// sendResetEmail delivers the reset link. Without a configured sender the
// token is still stored -- the warning tells the operator why no mail went
// out.
func (s *authService) sendResetEmail(ctx context.Context, account *Account, plainToken string) {
	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		slog.Warn("no mail sender configured, reset email not sent",
			slog.String("account_id", account.ID),
		)
		return
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/reset-password/%s",
		strings.TrimRight(s.baseURL, "/"), plainToken)

	subject := "Reset your Healthify password"
	text := fmt.Sprintf(
		"Hi %s,\n\nSubmit your new password to the link below to reset it:\n\n%s\n\nThis link expires in %s. If you didn't request a reset, you can ignore this email.\n",
		account.Name, resetURL, s.resetTTL,
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Submit your new password to the link below to reset it:</p><p><a href="%s">%s</a></p><p>This link expires in %s. If you didn't request a reset, you can ignore this email.</p>`,
		account.Name, resetURL, resetURL, s.resetTTL,
	)

	if err := s.mail.Send(ctx, []string{account.Email}, subject, text, html); err != nil {
		slog.Warn("failed to send password reset email",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
	}
}

// generateResetToken creates a cryptographically random hex-encoded token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the hex-encoded SHA-256 of a plaintext reset token.
// Fast hashing is fine here: the token itself carries 256 bits of entropy,
// so there is nothing to brute-force offline.
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
