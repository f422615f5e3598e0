package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Channel selects how Twilio delivers the message.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// MessageCreator is the part of the Twilio REST API the notifier uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	Channel    Channel
}

// TwilioNotifier sends OTPs through Twilio Programmable Messaging.
type TwilioNotifier struct {
	api     MessageCreator
	from    string
	channel Channel
	message Message
}

// NewTwilioNotifier builds a notifier from account credentials.
func NewTwilioNotifier(cfg TwilioConfig, msg Message) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioNotifierWithAPI(client.Api, cfg.From, cfg.Channel, msg)
}

// NewTwilioNotifierWithAPI builds a notifier over an existing API client.
func NewTwilioNotifierWithAPI(api MessageCreator, from string, channel Channel, msg Message) *TwilioNotifier {
	if channel == "" {
		channel = ChannelSMS
	}
	return &TwilioNotifier{api: api, from: from, channel: channel, message: msg}
}

func (n *TwilioNotifier) address(number string) string {
	if n.channel == ChannelWhatsApp && !strings.HasPrefix(number, "whatsapp:") {
		return "whatsapp:" + number
	}
	return number
}

func (n *TwilioNotifier) Send(ctx context.Context, identity domain.Identity, code string, purpose domain.Purpose) error {
	log := slogx.FromContext(ctx)

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(n.address(n.from))
	params.SetTo(n.address(identity.E164()))
	params.SetBody(n.message.Format(code, purpose))

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		log.Error("twilio send failed", "channel", n.channel, "err", err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Info("otp dispatched", "channel", n.channel, "purpose", purpose, "sid", sid)
	return nil
}
