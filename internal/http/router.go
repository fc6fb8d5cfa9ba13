package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/hirokiuemura2/GDGTeamF1/internal/config"
	"github.com/hirokiuemura2/GDGTeamF1/internal/http/handler"
	httpmiddleware "github.com/hirokiuemura2/GDGTeamF1/internal/http/middleware"
	"github.com/hirokiuemura2/GDGTeamF1/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	expenseHandler *handler.ExpenseHandler,
	currencyHandler *handler.CurrencyHandler,
	adviceHandler *handler.AdviceHandler,
	authMiddleware *httpmiddleware.Auth,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", authHandler.SignUp)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/login-check", authMiddleware.RequireBearer, authHandler.LoginCheck)
		auth.POST("/delete-user", authMiddleware.RequireBearer, authHandler.DeleteUser)

		google := auth.Group("/google")
		{
			google.GET("/login", authHandler.GoogleLogin)
			google.GET("/sign-up", authHandler.GoogleSignUp)
			google.GET("/callback", authHandler.GoogleCallback)
			google.GET("/sign-up-callback", authHandler.GoogleSignUpCallback)
		}
	}

	expenses := r.Group("/expenses", authMiddleware.RequireBearer)
	{
		expenses.POST("", expenseHandler.CreateExpense)
		expenses.GET("/get", expenseHandler.GetExpenses)
		expenses.POST("/delete", expenseHandler.DeleteExpense)
		expenses.POST("/make-subscription", expenseHandler.MakeSubscription)
		expenses.GET("/get-subscription", expenseHandler.GetSubscriptions)
		expenses.POST("/delete-subscription", expenseHandler.DeleteSubscription)
	}

	r.GET("/currency/convert", currencyHandler.Convert)
	r.GET("/google-ai/advice", adviceHandler.Advice)
	r.GET("/healthcheck", handler.Healthcheck)

	return r
}
