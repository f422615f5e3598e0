package domain

import (
	"strings"
	"time"
)

// Identity is the (countryCode, phoneNumber) pair identifying an account
// within a variant.
type Identity struct {
	CountryCode string
	PhoneNumber string
}

// NewIdentity normalises whitespace and applies the default country code.
func NewIdentity(countryCode, phoneNumber string) Identity {
	cc := strings.TrimSpace(countryCode)
	if cc == "" {
		cc = DefaultCountryCode
	}
	if !strings.HasPrefix(cc, "+") {
		cc = "+" + cc
	}
	return Identity{
		CountryCode: cc,
		PhoneNumber: strings.ReplaceAll(strings.TrimSpace(phoneNumber), " ", ""),
	}
}

// DefaultCountryCode is applied when a request omits the country code.
const DefaultCountryCode = "+91"

// E164 renders the identity as a single dialable number.
func (i Identity) E164() string { return i.CountryCode + i.PhoneNumber }

func (i Identity) String() string { return i.E164() }

// Suffix returns the last n digits of the phone number.
func (i Identity) Suffix(n int) string {
	if len(i.PhoneNumber) <= n {
		return i.PhoneNumber
	}
	return i.PhoneNumber[len(i.PhoneNumber)-n:]
}

// Media references a blob held by the media storage service.
type Media struct {
	Key          string
	URL          string
	OriginalName string
	MimeType     string
	Size         int64
	Width        int
	Height       int
	UploadedAt   time.Time
}

// Account is a user, driver or admin. All variants share this shape.
type Account struct {
	ID          string
	Variant     Variant
	Identity    Identity
	DisplayName string
	Role        Role
	IsActive    bool
	IsVerified  bool
	LastLogin   *time.Time

	// RefreshToken holds the single live refresh token. It is never
	// serialised in responses.
	RefreshToken string

	Media     *Media
	CreatedAt time.Time
	UpdatedAt time.Time
}
