package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopkit-labs/shopkit-backend/api/controllers"
	cartcontrollers "github.com/shopkit-labs/shopkit-backend/api/controllers/cart"
	"github.com/shopkit-labs/shopkit-backend/api/middleware"
	cartsvc "github.com/shopkit-labs/shopkit-backend/internal/cart"
	"github.com/shopkit-labs/shopkit-backend/internal/identity"
	"github.com/shopkit-labs/shopkit-backend/pkg/config"
	"github.com/shopkit-labs/shopkit-backend/pkg/db"
	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
	"github.com/shopkit-labs/shopkit-backend/pkg/redis"
)

// NewRouter wires the HTTP surface of the cart engine.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	resolver *identity.Resolver,
	cartService cartsvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	deps := cartcontrollers.Deps{
		Service:  cartService,
		Resolver: resolver,
		Config:   cfg,
		Logger:   logg,
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.GuestToken(),
		)

		r.Get("/", cartcontrollers.GetCart(deps))
		r.Delete("/", cartcontrollers.ClearCart(deps))
		r.Get("/count", cartcontrollers.GetCount(deps))
		r.Get("/validate-stock", cartcontrollers.ValidateStock(deps))

		r.Post("/items", cartcontrollers.AddItem(deps))
		r.Patch("/items/{itemID}", cartcontrollers.UpdateItem(deps))
		r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(deps))

		r.With(middleware.RequireAuth(logg)).Post("/merge", cartcontrollers.Merge(deps))
	})

	return r
}
