package authsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Me returns the signed-in account's profile.
func (s *Session) Me(ctx context.Context) (*Account, error) {
	var out AccountResponse
	if err := s.call(ctx, http.MethodGet, s.client.variantPath("/me"), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Logout revokes the session on the server. The session is unusable
// afterwards.
func (s *Session) Logout(ctx context.Context) error {
	var out MessageResponse
	if err := s.call(ctx, http.MethodPost, s.client.variantPath("/otp/logout"), nil, &out); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}

// UpdatePhone moves the account to a new number. Send an "update-phone"
// OTP to the new number first.
func (s *Session) UpdatePhone(ctx context.Context, req UpdatePhoneRequest) (*Account, error) {
	return s.sendAccount(ctx, http.MethodPatch, s.client.variantPath("/me/phone"), req)
}

// UploadImage replaces the profile image with the contents of r.
func (s *Session) UploadImage(ctx context.Context, filename string, r io.Reader) (*Account, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var out AccountResponse
	body := &payload{r: &buf, contentType: mw.FormDataContentType()}
	if err := s.call(ctx, http.MethodPut, s.client.variantPath("/me/image"), body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// SetAccountStatus activates or deactivates an account of variant. Needs
// an admin session.
func (s *Session) SetAccountStatus(ctx context.Context, variant, accountID string, active bool) (*Account, error) {
	path := "/v1/admin/accounts/" + variant + "/" + accountID + "/status"
	return s.sendAccount(ctx, http.MethodPatch, path, SetStatusRequest{IsActive: &active})
}

func (s *Session) sendAccount(ctx context.Context, method, path string, in any) (*Account, error) {
	body, err := jsonPayload(in)
	if err != nil {
		return nil, err
	}
	var out AccountResponse
	if err := s.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}
