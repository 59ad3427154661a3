package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/shopkit-labs/shopkit-backend/api/responses"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
)

// Recoverer converts handler panics into a 500 response so a single bad
// request cannot take the process down.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				handlePanic(w, r, logg, rec)
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, logg *logger.Logger, rec any) {
	err := fmt.Errorf("panic: %v", rec)
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"panic": rec,
			"stack": string(debug.Stack()),
		})
		logg.Error(ctx, "panic.recovered", err)
	}
	responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
}
