package cart

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartdto "github.com/shopkit-labs/shopkit-backend/api/controllers/cart/dto"
	"github.com/shopkit-labs/shopkit-backend/api/middleware"
	"github.com/shopkit-labs/shopkit-backend/api/responses"
	"github.com/shopkit-labs/shopkit-backend/api/validators"
	cartsvc "github.com/shopkit-labs/shopkit-backend/internal/cart"
	"github.com/shopkit-labs/shopkit-backend/internal/identity"
	"github.com/shopkit-labs/shopkit-backend/pkg/config"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

// Deps bundles what every cart handler needs.
type Deps struct {
	Service  cartsvc.Service
	Resolver *identity.Resolver
	Config   *config.Config
	Logger   *logger.Logger
}

func issueGuestCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.GuestTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(middleware.GuestTokenHeader, token)
}

func expireGuestCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.GuestTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// resolveOwner derives the cart owner for the request, issuing a guest token
// cookie when one had to be minted.
func (d Deps) resolveOwner(w http.ResponseWriter, r *http.Request) (types.CartOwner, error) {
	var accountID uuid.UUID
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return types.CartOwner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account id")
		}
		accountID = parsed
	}

	res, err := d.Resolver.Resolve(accountID, middleware.GuestTokenFromContext(r.Context()))
	if err != nil {
		return types.CartOwner{}, err
	}
	if res.MintedToken != "" {
		issueGuestCookie(w, res.MintedToken, d.Config.Cart.GuestTTL, d.Config.App.IsProd())
	}
	return res.Owner, nil
}

// GetCart resolves or creates the caller's cart and returns the reconciled view.
func GetCart(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		view, err := d.Service.GetOrCreate(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// GetCount returns the caller's total cart quantity without creating a cart.
func GetCount(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		count, err := d.Service.GetCartCount(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": count})
	}
}

// AddItem adds a product line to the caller's cart.
func AddItem(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		input := cartsvc.AddItemInput{ProductID: productID, Quantity: payload.Quantity}
		if payload.VariantID != "" {
			variantID, err := uuid.Parse(payload.VariantID)
			if err != nil {
				responses.WriteError(r.Context(), d.Logger, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
				return
			}
			input.VariantID = &variantID
		}

		item, err := d.Service.AddItem(r.Context(), owner, input)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func itemIDFromURL(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "itemID")
	itemID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return itemID, nil
}

// UpdateItem replaces a line's quantity.
func UpdateItem(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		itemID, err := itemIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		var payload cartdto.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		item, err := d.Service.UpdateItemQuantity(r.Context(), owner, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// RemoveItem deletes a line from the caller's cart.
func RemoveItem(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		itemID, err := itemIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		if err := d.Service.RemoveItem(r.Context(), owner, itemID); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ClearCart empties the caller's cart.
func ClearCart(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		if err := d.Service.ClearCart(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// Merge folds the caller's guest cart into their account cart after login,
// then retires the guest cookie.
func Merge(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := middleware.UserIDFromContext(r.Context())
		accountID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account id"))
			return
		}

		view, err := d.Service.MergeCarts(r.Context(), middleware.GuestTokenFromContext(r.Context()), accountID)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		expireGuestCookie(w, d.Config.App.IsProd())
		responses.WriteSuccess(w, view)
	}
}

// ValidateStock reports per-line stock adequacy for the caller's cart.
func ValidateStock(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := d.resolveOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		validation, err := d.Service.ValidateStock(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}
