package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OwnerKind discriminates the two arms of CartOwner.
type OwnerKind string

const (
	OwnerKindAccount OwnerKind = "account"
	OwnerKindGuest   OwnerKind = "guest"
)

// CartOwner identifies who a cart belongs to: exactly one of an authenticated
// account id or an opaque guest token. The zero value owns nothing; the
// constructors are the only way to build a populated owner, which keeps the
// exclusivity rule out of every call site.
type CartOwner struct {
	kind      OwnerKind
	accountID uuid.UUID
	token     string
}

// AccountOwner builds an owner for an authenticated account.
func AccountOwner(accountID uuid.UUID) (CartOwner, error) {
	if accountID == uuid.Nil {
		return CartOwner{}, fmt.Errorf("account id is required")
	}
	return CartOwner{kind: OwnerKindAccount, accountID: accountID}, nil
}

// GuestOwner builds an owner for an anonymous guest token.
func GuestOwner(token string) (CartOwner, error) {
	if strings.TrimSpace(token) == "" {
		return CartOwner{}, fmt.Errorf("guest token is required")
	}
	return CartOwner{kind: OwnerKindGuest, token: token}, nil
}

// Kind returns the owner discriminant, or "" for the zero value.
func (o CartOwner) Kind() OwnerKind {
	return o.kind
}

// IsZero reports whether the owner is unpopulated.
func (o CartOwner) IsZero() bool {
	return o.kind == ""
}

// AccountID returns the account arm when present.
func (o CartOwner) AccountID() (uuid.UUID, bool) {
	if o.kind != OwnerKindAccount {
		return uuid.Nil, false
	}
	return o.accountID, true
}

// GuestToken returns the guest arm when present.
func (o CartOwner) GuestToken() (string, bool) {
	if o.kind != OwnerKindGuest {
		return "", false
	}
	return o.token, true
}

// String renders a loggable owner key without leaking the full guest token.
func (o CartOwner) String() string {
	switch o.kind {
	case OwnerKindAccount:
		return "account:" + o.accountID.String()
	case OwnerKindGuest:
		if len(o.token) > 8 {
			return "guest:" + o.token[:8] + "…"
		}
		return "guest:" + o.token
	default:
		return "owner:none"
	}
}
