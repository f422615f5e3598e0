package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/ridebook/pkg/cryptox"
)

// HKDF info labels for secrets derived from AUTH_MASTER_SECRET.
const (
	accessSecretInfo  = "ridebook access token"
	refreshSecretInfo = "ridebook refresh token"
)

var errNoSecrets = errors.New("no signing secrets configured: set JWT_ACCESS_SECRET and JWT_REFRESH_SECRET or AUTH_MASTER_SECRET")

// SigningSecrets are the HMAC keys of the two token kinds.
type SigningSecrets struct {
	Access  []byte
	Refresh []byte
}

// LoadSigningSecrets resolves the token secrets.
//
// Sources, in order:
//   - "explicit": JWT_ACCESS_SECRET and JWT_REFRESH_SECRET as given.
//   - "derived": both expanded from AUTH_MASTER_SECRET with HKDF.
//   - "ephemeral": random secrets held in memory. Every token becomes
//     invalid when the service restarts. Refused in production.
func LoadSigningSecrets(cfg Config, logger *slog.Logger) (SigningSecrets, error) {
	switch {
	case cfg.AccessSecret != "" && cfg.RefreshSecret != "":
		if cfg.AccessSecret == cfg.RefreshSecret {
			return SigningSecrets{}, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
		}
		logger.Info("signing secrets loaded", "source", "explicit")
		return SigningSecrets{Access: []byte(cfg.AccessSecret), Refresh: []byte(cfg.RefreshSecret)}, nil

	case cfg.MasterSecret != "":
		master := []byte(cfg.MasterSecret)
		access, err := cryptox.DeriveKey(master, accessSecretInfo, cryptox.SecretSize)
		if err != nil {
			return SigningSecrets{}, fmt.Errorf("derive access secret: %w", err)
		}
		refresh, err := cryptox.DeriveKey(master, refreshSecretInfo, cryptox.SecretSize)
		if err != nil {
			return SigningSecrets{}, fmt.Errorf("derive refresh secret: %w", err)
		}
		logger.Info("signing secrets loaded", "source", "derived")
		return SigningSecrets{Access: access, Refresh: refresh}, nil

	case cfg.Production():
		return SigningSecrets{}, errNoSecrets
	}

	access, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return SigningSecrets{}, err
	}
	refresh, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return SigningSecrets{}, err
	}
	logger.Warn("using ephemeral signing secrets, issued tokens will not survive a restart",
		"source", "ephemeral",
	)
	return SigningSecrets{Access: access, Refresh: refresh}, nil
}
