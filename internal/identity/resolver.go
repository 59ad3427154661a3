package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

const tokenBytes = 16

// Resolution is the outcome of resolving a request's cart owner. MintedToken
// is non-empty only when a fresh guest token was issued and must be handed
// back to the client for persistence.
type Resolution struct {
	Owner       types.CartOwner
	MintedToken string
}

// Resolver derives the cart owner key for a request. Authenticated identity
// always wins over a guest token; with neither, a new guest token is minted.
type Resolver struct{}

// NewResolver constructs an identity resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve picks the owner for a request carrying an optional account id and
// an optional client-persisted guest token.
func (r *Resolver) Resolve(accountID uuid.UUID, guestToken string) (Resolution, error) {
	if accountID != uuid.Nil {
		owner, err := types.AccountOwner(accountID)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build account owner")
		}
		return Resolution{Owner: owner}, nil
	}

	if token := strings.TrimSpace(guestToken); token != "" {
		owner, err := types.GuestOwner(token)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build guest owner")
		}
		return Resolution{Owner: owner}, nil
	}

	minted, err := mintGuestToken()
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint guest token")
	}
	owner, err := types.GuestOwner(minted)
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build guest owner")
	}
	return Resolution{Owner: owner, MintedToken: minted}, nil
}

func mintGuestToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
