package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/onnwee/streambot/crypto"
)

var (
	encryptor     crypto.Encryptor
	encryptorOnce sync.Once
	encryptorErr  error
)

// initEncryptor reads ENCRYPTION_KEY lazily on first token access. Without
// a key tokens are stored in plaintext (encryption_version = 0).
func initEncryptor() {
	encryptorOnce.Do(func() {
		key := os.Getenv("ENCRYPTION_KEY")
		if key == "" {
			slog.Warn("ENCRYPTION_KEY not set, oauth tokens will be stored in plaintext")
			return
		}
		enc, err := crypto.NewAESEncryptor(key)
		if err != nil {
			encryptorErr = fmt.Errorf("init encryption: %w", err)
			slog.Error("encryption initialization failed", slog.Any("err", encryptorErr))
			return
		}
		encryptor = enc
	})
}

// OAuthToken is one provider's stored credential set.
type OAuthToken struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// GetOAuthToken loads and (if needed) decrypts a provider's token row.
// Returns (nil, nil) when no row exists.
func GetOAuthToken(ctx context.Context, db *sql.DB, provider string) (*OAuthToken, error) {
	initEncryptor()
	if encryptorErr != nil {
		return nil, encryptorErr
	}
	var (
		tok     OAuthToken
		exp     sql.NullTime
		version int
	)
	err := db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope, encryption_version
		 FROM oauth_tokens WHERE provider=$1`, provider).
		Scan(&tok.AccessToken, &tok.RefreshToken, &exp, &tok.Scope, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth token: %w", err)
	}
	tok.Provider = provider
	if exp.Valid {
		tok.ExpiresAt = exp.Time
	}
	if version > 0 {
		if encryptor == nil {
			return nil, fmt.Errorf("get oauth token: row is encrypted but ENCRYPTION_KEY is not set")
		}
		if tok.AccessToken, err = crypto.DecryptString(encryptor, tok.AccessToken); err != nil {
			return nil, fmt.Errorf("get oauth token: %w", err)
		}
		if tok.RefreshToken, err = crypto.DecryptString(encryptor, tok.RefreshToken); err != nil {
			return nil, fmt.Errorf("get oauth token: %w", err)
		}
	}
	return &tok, nil
}

// SetOAuthToken upserts a provider's token row, encrypting at rest when a
// key is configured.
func SetOAuthToken(ctx context.Context, db *sql.DB, tok *OAuthToken) error {
	initEncryptor()
	if encryptorErr != nil {
		return encryptorErr
	}
	access, refresh, version := tok.AccessToken, tok.RefreshToken, 0
	if encryptor != nil {
		var err error
		if access, err = crypto.EncryptString(encryptor, access); err != nil {
			return fmt.Errorf("set oauth token: %w", err)
		}
		if refresh, err = crypto.EncryptString(encryptor, refresh); err != nil {
			return fmt.Errorf("set oauth token: %w", err)
		}
		version = 1
	}
	exp := sql.NullTime{Time: tok.ExpiresAt, Valid: !tok.ExpiresAt.IsZero()}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, encryption_version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			encryption_version = EXCLUDED.encryption_version,
			updated_at = NOW()`,
		tok.Provider, access, refresh, exp, tok.Scope, version); err != nil {
		return fmt.Errorf("set oauth token: %w", err)
	}
	return nil
}
