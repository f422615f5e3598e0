package domain

import (
	"errors"
	"strings"
)

// ErrUnknownVariant is returned when a path or claim names no account variant.
var ErrUnknownVariant = errors.New("domain: unknown account variant")

// Variant names an account population. Each variant keeps its accounts in
// its own collection and has its own OTP namespace, so the same phone number
// can hold a user account and a driver account at once.
type Variant string

const (
	VariantUser   Variant = "user"
	VariantDriver Variant = "driver"
	VariantAdmin  Variant = "admin"
)

// Variants lists every variant in routing order.
var Variants = []Variant{VariantUser, VariantDriver, VariantAdmin}

// ParseVariant accepts both the singular form and the plural path segment
// ("users", "drivers"). "admin" has no plural form on the wire.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "users":
		return VariantUser, nil
	case "driver", "drivers":
		return VariantDriver, nil
	case "admin", "admins":
		return VariantAdmin, nil
	}
	return "", ErrUnknownVariant
}

// Collection is the collection (or table) holding accounts of this variant.
func (v Variant) Collection() string {
	switch v {
	case VariantDriver:
		return "drivers"
	case VariantAdmin:
		return "admins"
	default:
		return "users"
	}
}

// PathSegment is the URL segment under /v1 serving this variant.
func (v Variant) PathSegment() string {
	if v == VariantAdmin {
		return "admin"
	}
	return v.Collection()
}

// DefaultRole is the role assigned to accounts created by OTP registration.
func (v Variant) DefaultRole() Role {
	switch v {
	case VariantDriver:
		return RoleDriver
	case VariantAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// NamePrefix is the prefix of generated placeholder display names.
func (v Variant) NamePrefix() string {
	switch v {
	case VariantDriver:
		return "Driver"
	case VariantAdmin:
		return "admin"
	default:
		return "user"
	}
}

// Label is the capitalised noun used in client-facing messages.
func (v Variant) Label() string {
	switch v {
	case VariantDriver:
		return "Driver"
	case VariantAdmin:
		return "Admin"
	default:
		return "User"
	}
}
