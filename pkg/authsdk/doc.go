/*
Package authsdk is the client SDK of the ridebook auth service, and the home
of the wire types and error envelope the service speaks.

# SDKClient vs Session

An SDKClient talks to one account variant ("users", "drivers" or "admin")
and runs the unauthenticated OTP flow:

	client := authsdk.NewSDKClient("https://auth.example.com", authsdk.VariantUsers)

	sent, err := client.SendOTP(ctx, authsdk.SendOTPRequest{
		PhoneNumber: "9876543210",
		Purpose:     "registration",
	})

	session, err := client.Login(ctx, authsdk.VerifyOTPRequest{
		PhoneNumber: "9876543210",
		Purpose:     "registration",
		OTP:         code,
	})

A Session carries the token pair and refreshes the access token when it is
about to expire. Refresh tokens rotate on every refresh, so a Session must
not be copied between processes.

	me, err := session.Me(ctx)
	err = session.Logout(ctx)

# Errors

Every non-2xx response is returned as an *APIError carrying the stable
code of the envelope. Compare with errors.Is against the predefined values:

	if errors.Is(err, authsdk.ErrInvalidOrExpiredOTP) {
		// ask for the code again
	}

Rate limited responses carry RetryAfter in seconds.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
