package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
)

// OTPHandler serves the /v1/{variant}/otp endpoints of one variant.
type OTPHandler struct {
	AuthService *service.AuthService
	Variant     domain.Variant
}

// HandleSend godoc
//
//	@Summary		Send an OTP
//	@Description	Issues a 6-digit code for the phone number and purpose and delivers it by SMS.
//	@Description	countryCode defaults to +91 and purpose to "login". Login sends require an existing account.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string					true	"Account variant"	Enums(users, drivers, admin)
//	@Param			request	body		authsdk.SendOTPRequest	true	"Phone number and purpose"
//	@Success		200		{object}	authsdk.SendOTPResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		404		{object}	authsdk.APIError
//	@Failure		429		{object}	authsdk.APIError
//	@Failure		500		{object}	authsdk.APIError
//	@Router			/v1/{variant}/otp/send [post]
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.AuthService.Send)
}

// HandleResend godoc
//
//	@Summary		Resend an OTP
//	@Description	Replaces the code of the active OTP and delivers it again. Subject to the same cooldown as send.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string					true	"Account variant"	Enums(users, drivers, admin)
//	@Param			request	body		authsdk.SendOTPRequest	true	"Phone number and purpose"
//	@Success		200		{object}	authsdk.SendOTPResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		404		{object}	authsdk.APIError
//	@Failure		429		{object}	authsdk.APIError
//	@Router			/v1/{variant}/otp/resend [post]
func (h *OTPHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.AuthService.Resend)
}

type sendFunc func(ctx context.Context, req service.SendRequest) (service.SendResult, error)

func (h *OTPHandler) send(w http.ResponseWriter, r *http.Request, fn sendFunc) {
	var req authsdk.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	res, err := fn(r.Context(), service.SendRequest{
		Variant:     h.Variant,
		CountryCode: req.CountryCode,
		PhoneNumber: req.PhoneNumber,
		Purpose:     req.Purpose,
	})
	if err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SendOTPResponse{
		Success: true,
		Message: res.Message,
		OTP:     res.OTP,
	})
}

// HandleVerify godoc
//
//	@Summary		Verify an OTP
//	@Description	Consumes the code and signs the caller in. A registration purpose creates the account
//	@Description	when the number is new. Five failed attempts lock the number for 15 minutes.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string						true	"Account variant"	Enums(users, drivers, admin)
//	@Param			request	body		authsdk.VerifyOTPRequest	true	"Phone number, purpose and code"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Failure		404		{object}	authsdk.APIError
//	@Failure		429		{object}	authsdk.APIError
//	@Failure		503		{object}	authsdk.APIError
//	@Router			/v1/{variant}/otp/verify [post]
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	res, err := h.AuthService.Verify(r.Context(), service.VerifyRequest{
		Variant:     h.Variant,
		CountryCode: req.CountryCode,
		PhoneNumber: req.PhoneNumber,
		Purpose:     req.Purpose,
		OTP:         req.OTP,
	})
	if err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	data := toTokenData(res.Tokens)
	acc := toAccount(res.Account)
	data.Account = &acc
	data.IsNewAccount = res.IsNewAccount

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Success: true,
		Message: "OTP verified successfully",
		Data:    data,
	})
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges the stored refresh token for a new pair. The presented token stops working.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string						true	"Account variant"	Enums(users, drivers, admin)
//	@Param			request	body		authsdk.RefreshTokenRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Router			/v1/{variant}/otp/refresh-token [post]
func (h *OTPHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		authsdk.ErrNoRefreshToken.WriteError(w)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), h.Variant, req.RefreshToken)
	if err != nil {
		writeRefreshError(w, r, h.Variant, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Success: true,
		Message: "Token refreshed successfully",
		Data:    toTokenData(pair),
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Clears the stored refresh token. With the blacklist enabled the access token is refused too.
//	@Tags			OTP
//	@Security		BearerAuth
//	@Produce		json
//	@Param			variant	path		string	true	"Account variant"	Enums(users, drivers, admin)
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Router			/v1/{variant}/otp/logout [post]
func (h *OTPHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		authsdk.ErrNoToken.WriteError(w)
		return
	}
	claims, _ := httpx.ClaimsFromContext(ctx)

	if err := h.AuthService.Logout(ctx, h.Variant, accountID, httpx.AccessTokenFromContext(ctx), claims); err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Success: true, Message: "Logged out successfully"})
}
