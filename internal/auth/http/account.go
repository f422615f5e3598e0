package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
)

// multipartOverhead is the allowance for form boundaries and headers on
// top of the image itself.
const multipartOverhead = 1 << 20

// AccountHandler serves the signed-in account's /me endpoints.
type AccountHandler struct {
	AuthService *service.AuthService
	Variant     domain.Variant
}

// HandleGet godoc
//
//	@Summary		Current account
//	@Description	Returns the profile of the account behind the access token.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Param			variant	path		string	true	"Account variant"	Enums(users, drivers, admin)
//	@Success		200		{object}	authsdk.AccountResponse
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Router			/v1/{variant}/me [get]
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := httpx.AccountIDFromContext(ctx)

	acc, err := h.AuthService.Profile(ctx, h.Variant, accountID)
	if err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.AccountResponse{Success: true, Data: toAccount(acc)})
}

// HandleUpdatePhone godoc
//
//	@Summary		Change phone number
//	@Description	Moves the account to a new number. Send an "update-phone" OTP to the new number first.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string						true	"Account variant"	Enums(users, drivers, admin)
//	@Param			request	body		authsdk.UpdatePhoneRequest	true	"New number and its code"
//	@Success		200		{object}	authsdk.AccountResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		409		{object}	authsdk.APIError
//	@Failure		429		{object}	authsdk.APIError
//	@Router			/v1/{variant}/me/phone [patch]
func (h *AccountHandler) HandleUpdatePhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := httpx.AccountIDFromContext(ctx)

	var req authsdk.UpdatePhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	acc, err := h.AuthService.UpdatePhone(ctx, h.Variant, accountID, service.UpdatePhoneRequest{
		CountryCode: req.CountryCode,
		PhoneNumber: req.PhoneNumber,
		OTP:         req.OTP,
	})
	if err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AccountResponse{
		Success: true,
		Message: "Phone number updated successfully",
		Data:    toAccount(acc),
	})
}

// HandleUpdateImage godoc
//
//	@Summary		Upload profile image
//	@Description	Replaces the profile image. JPEG, PNG, GIF or WebP up to 5MB in the "image" form field.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			variant	path		string	true	"Account variant"	Enums(users, drivers, admin)
//	@Param			image	formData	file	true	"Image file"
//	@Success		200		{object}	authsdk.AccountResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		413		{object}	authsdk.APIError
//	@Failure		500		{object}	authsdk.APIError
//	@Router			/v1/{variant}/me/image [put]
func (h *AccountHandler) HandleUpdateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := httpx.AccountIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageSize+multipartOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			authsdk.ErrPayloadTooLarge.WriteError(w)
		case errors.Is(err, http.ErrMissingFile):
			authsdk.ErrValidation.WithMessage("Image file is required").WriteError(w)
		default:
			authsdk.ErrValidation.WithMessage("Request must be multipart/form-data with an image field").WriteError(w)
		}
		return
	}
	defer file.Close()

	// One byte past the limit is enough to know the upload is too big.
	data, err := io.ReadAll(io.LimitReader(file, media.MaxImageSize+1))
	if err != nil {
		authsdk.ErrValidation.WithMessage("Could not read image").WriteError(w)
		return
	}

	acc, err := h.AuthService.UpdateImage(ctx, h.Variant, accountID, service.ImageUpload{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, r, h.Variant, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AccountResponse{
		Success: true,
		Message: "Profile image updated successfully",
		Data:    toAccount(acc),
	})
}
