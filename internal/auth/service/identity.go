package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/pkg/idx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// IdentityResolver maps a verified phone number onto an account, creating
// one on registration.
type IdentityResolver struct {
	Store store.Store
	Now   func() time.Time
}

// Lookup returns the account of identity within v.
func (r *IdentityResolver) Lookup(ctx context.Context, v domain.Variant, identity domain.Identity) (domain.Account, error) {
	acc, err := r.Store.Accounts(v).GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return acc, nil
}

// Resolve finds or creates the account for identity and records the login.
//
// Only the registration purpose creates accounts; an existing account turns
// a registration into a login. Every other purpose needs the account to
// exist already.
func (r *IdentityResolver) Resolve(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose) (domain.Account, bool, error) {
	var (
		acc   domain.Account
		isNew bool
		err   error
	)

	if purpose == domain.PurposeRegistration {
		acc, isNew, err = r.Provision(ctx, v, identity, v.DefaultRole())
	} else {
		acc, err = r.Lookup(ctx, v, identity)
	}
	if err != nil {
		return domain.Account{}, false, err
	}

	now := clock(r.Now)
	if err := r.Store.Accounts(v).TouchLogin(ctx, acc.ID, now); err != nil {
		return domain.Account{}, false, fmt.Errorf("touch login: %w", err)
	}
	acc.LastLogin = &now
	acc.UpdatedAt = now

	return acc, isNew, nil
}

// Provision creates an account for identity unless one exists. Losing a
// concurrent create falls back to the winner's account.
func (r *IdentityResolver) Provision(ctx context.Context, v domain.Variant, identity domain.Identity, role domain.Role) (domain.Account, bool, error) {
	acc, err := r.Lookup(ctx, v, identity)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return domain.Account{}, false, err
	}

	now := clock(r.Now)
	acc = domain.Account{
		ID:          idx.NewAt(now).String(),
		Variant:     v,
		Identity:    identity,
		DisplayName: PlaceholderName(v, identity, now),
		Role:        role,
		IsActive:    true,
		IsVerified:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.Store.Accounts(v).Create(ctx, acc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			slogx.FromContext(ctx).Info("account created concurrently, using existing",
				slog.String("variant", string(v)))
			existing, err := r.Lookup(ctx, v, identity)
			return existing, false, err
		}
		return domain.Account{}, false, fmt.Errorf("create account: %w", err)
	}

	slogx.FromContext(ctx).Info("account created",
		slog.String("variant", string(v)),
		slog.String("account_id", acc.ID),
	)
	return acc, true, nil
}

// PlaceholderName is the display name given to a freshly registered
// account, e.g. "user_3210_4821": the last four phone digits followed by
// the last four digits of the creation time in milliseconds.
func PlaceholderName(v domain.Variant, identity domain.Identity, at time.Time) string {
	return fmt.Sprintf("%s_%s_%04d", v.NamePrefix(), identity.Suffix(4), at.UnixMilli()%10000)
}
