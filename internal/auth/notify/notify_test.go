package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/notify"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeAPI struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestMessageFormat(t *testing.T) {
	t.Parallel()

	msg := notify.Message{Brand: "ridebook", TTL: 10 * time.Minute}

	cases := map[domain.Purpose]string{
		domain.PurposeLogin:         "Your Ridebook Login OTP is: 123456. Valid for 10 minutes.",
		domain.PurposeUpdatePhone:   "Your Ridebook Update Phone OTP is: 123456. Valid for 10 minutes.",
		domain.PurposePasswordReset: "Your Ridebook Password Reset OTP is: 123456. Valid for 10 minutes.",
	}
	for purpose, want := range cases {
		t.Run(string(purpose), func(t *testing.T) {
			t.Parallel()
			require.Equal(t, want, msg.Format("123456", purpose))
		})
	}
}

func TestTwilioNotifier(t *testing.T) {
	t.Parallel()

	identity := domain.NewIdentity("+91", "9876543210")
	msg := notify.Message{Brand: "ridebook", TTL: 10 * time.Minute}

	t.Run("sms", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		n := notify.NewTwilioNotifierWithAPI(api, "+15005550006", "", msg)

		require.NoError(t, n.Send(context.Background(), identity, "123456", domain.PurposeLogin))
		require.Equal(t, "+919876543210", *api.params.To)
		require.Equal(t, "+15005550006", *api.params.From)
		require.Contains(t, *api.params.Body, "123456")
	})

	t.Run("whatsapp", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		n := notify.NewTwilioNotifierWithAPI(api, "+14155238886", notify.ChannelWhatsApp, msg)

		require.NoError(t, n.Send(context.Background(), identity, "123456", domain.PurposeRegistration))
		require.Equal(t, "whatsapp:+919876543210", *api.params.To)
		require.Equal(t, "whatsapp:+14155238886", *api.params.From)
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{err: errors.New("boom")}
		n := notify.NewTwilioNotifierWithAPI(api, "+15005550006", notify.ChannelSMS, msg)

		err := n.Send(context.Background(), identity, "123456", domain.PurposeLogin)
		require.ErrorIs(t, err, notify.ErrDelivery)
	})
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	n := notify.LogNotifier{Message: notify.Message{Brand: "ridebook", TTL: time.Minute}}
	require.NoError(t, n.Send(context.Background(), domain.NewIdentity("", "9876543210"), "123456", domain.PurposeLogin))
}
