package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 64 << 10

var errInvalidBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

func toAccount(a domain.Account) authsdk.Account {
	out := authsdk.Account{
		ID:          a.ID,
		CountryCode: a.Identity.CountryCode,
		PhoneNumber: a.Identity.PhoneNumber,
		Name:        a.DisplayName,
		Role:        string(a.Role),
		IsActive:    a.IsActive,
		IsVerified:  a.IsVerified,
		LastLogin:   a.LastLogin,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if m := a.Media; m != nil {
		out.ProfileImage = &authsdk.ProfileImage{
			Key:          m.Key,
			URL:          m.URL,
			OriginalName: m.OriginalName,
			MimeType:     m.MimeType,
			Size:         m.Size,
			Width:        m.Width,
			Height:       m.Height,
			UploadedAt:   m.UploadedAt,
		}
	}
	return out
}

func toTokenData(p domain.TokenPair) authsdk.TokenData {
	return authsdk.TokenData{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int(p.ExpiresIn.Seconds()),
	}
}
