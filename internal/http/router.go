package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"duemate/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas. Sólo los
// proxies de trustedProxies pueden fijar la IP de cliente vía cabeceras.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	paymentH *PaymentHandler,
	healthH *HealthHandler,
	jwtSvc *service.JWTService,
	metrics *HTTPMetrics,
	metricsHandler http.Handler,
	trustedProxies []string,
) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, ignoring forwarded headers", zap.Strings("proxies", trustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metrics.Handler())

	r.GET("/healthz", healthH.Healthz)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api", jsonContentTypeMiddleware())

	auth := api.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/login/email", authH.LoginEmail)
	auth.POST("/login/phone", authH.LoginPhone)
	auth.POST("/verify_otp", authH.VerifyOTP)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", authH.Logout)

	payments := api.Group("/payments", JWTAuthMiddleware(jwtSvc))
	payments.POST("", paymentH.Create)
	payments.GET("", paymentH.List)
	payments.PATCH("/:id/status", paymentH.UpdateStatus)
	payments.DELETE("/:id", paymentH.Delete)

	return r
}
