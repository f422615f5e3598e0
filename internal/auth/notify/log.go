package notify

import (
	"context"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// LogNotifier writes the message to the contextual logger instead of
// sending it. Used when no SMS provider is configured.
type LogNotifier struct {
	Message Message
}

func (n LogNotifier) Send(ctx context.Context, identity domain.Identity, code string, purpose domain.Purpose) error {
	slogx.FromContext(ctx).Debug("otp not sent, no provider configured",
		"to", identity.CountryCode+"******"+identity.Suffix(4),
		"purpose", purpose,
		"body", n.Message.Format(code, purpose),
	)
	return nil
}
