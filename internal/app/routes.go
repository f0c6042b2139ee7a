package app

import (
	"github.com/gin-gonic/gin"
	"github.com/lendfront/portal-core/internal/middleware"
	"github.com/lendfront/portal-core/internal/modules/auth"
	"github.com/lendfront/portal-core/internal/modules/contract"
	"github.com/lendfront/portal-core/internal/modules/health"
	"github.com/lendfront/portal-core/internal/modules/payment"
	"github.com/lendfront/portal-core/internal/modules/verification"
	"github.com/lendfront/portal-core/internal/pkg/alert"
	pkgredis "github.com/lendfront/portal-core/internal/pkg/redis"
	"github.com/lendfront/portal-core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	alertSvc := alert.New(func() (webhookURL, channel string) {
		return a.cfg.Alert.WebhookURL, a.cfg.Alert.Channel
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), alertSvc))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))

	health.RegisterRoutes(api, db, rc)

	authSvc := auth.NewService(db)
	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)

	verifStore := verification.NewStore(db)
	verifProvider := verification.NewHTTPProviderClient(
		a.cfg.Provider.BaseURL, a.cfg.Provider.APIKey, a.cfg.Provider.Timeout())
	verifSvc := verification.NewService(verifStore, verifProvider, verification.Config{
		CallbackURL:    a.cfg.Provider.CallbackURL,
		WebhookSecret:  a.cfg.Provider.WebhookSecret,
		DeepLinkScheme: a.cfg.Provider.DeepLinkScheme,
	}, a.logger)
	verification.NewHandler(verifSvc, alertSvc).RegisterRoutes(api)

	contractSvc := contract.NewService(db, verifSvc)
	contract.NewHandler(contractSvc).RegisterRoutes(api, authMW)

	paymentSvc := payment.NewService(db)
	payment.NewHandler(paymentSvc).RegisterRoutes(api, authMW)
}
