package http

import (
	"net/http"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// AccountStatusHandler lets admins activate and deactivate accounts of any
// variant.
type AccountStatusHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Set account status
//	@Description	Activates or deactivates an account. Deactivation ends its session and the auth
//	@Description	middleware refuses its access tokens from then on.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			variant	path		string						true	"Variant of the target account"	Enums(users, drivers, admin)
//	@Param			id		path		string						true	"Account ID"
//	@Param			request	body		authsdk.SetStatusRequest	true	"New status"
//	@Success		200		{object}	authsdk.AccountResponse
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Failure		404		{object}	authsdk.APIError
//	@Router			/v1/admin/accounts/{variant}/{id}/status [patch]
func (h *AccountStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	target, err := domain.ParseVariant(r.PathValue("variant"))
	if err != nil {
		authsdk.ErrNotFound.WithMessage("Unknown account type").WriteError(w)
		return
	}
	id := r.PathValue("id")

	var req authsdk.SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}
	if req.IsActive == nil {
		authsdk.ErrValidation.WithMessage("isActive is required").WriteError(w)
		return
	}

	adminID, _ := httpx.AccountIDFromContext(ctx)
	log.Info("admin changing account status",
		"admin_id", adminID,
		"target_variant", string(target),
		"target_id", id,
		"active", *req.IsActive,
	)

	acc, err := h.AuthService.SetStatus(ctx, target, id, *req.IsActive)
	if err != nil {
		writeError(w, r, target, err)
		return
	}

	msg := target.Label() + " deactivated"
	if acc.IsActive {
		msg = target.Label() + " activated"
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.AccountResponse{Success: true, Message: msg, Data: toAccount(acc)})
}
