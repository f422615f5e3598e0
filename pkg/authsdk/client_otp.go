package authsdk

import (
	"context"
	"fmt"
)

// SendOTP asks the service to text a fresh code to the phone number.
func (c *SDKClient) SendOTP(ctx context.Context, req SendOTPRequest) (*SendOTPResponse, error) {
	var out SendOTPResponse
	if err := c.postJSON(ctx, c.variantPath("/otp/send"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendOTP replaces the active code and texts it again.
func (c *SDKClient) ResendOTP(ctx context.Context, req SendOTPRequest) (*SendOTPResponse, error) {
	var out SendOTPResponse
	if err := c.postJSON(ctx, c.variantPath("/otp/resend"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges a code for a token pair.
func (c *SDKClient) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, c.variantPath("/otp/verify"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken rotates a refresh token into a new pair. The presented
// token stops working.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postJSON(ctx, c.variantPath("/otp/refresh-token"), RefreshTokenRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login verifies a code and returns a session for the signed-in account.
func (c *SDKClient) Login(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	resp, err := c.VerifyOTP(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Data.AccessToken == "" {
		return nil, fmt.Errorf("verify response carried no access token")
	}
	return newSession(c, resp.Data), nil
}
