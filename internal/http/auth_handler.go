package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"duemate/internal/domain"
	"duemate/internal/service"
)

// AuthHandler expone el acceso por OTP y la gestión de tokens.
type AuthHandler struct {
	logger  *zap.Logger
	otpServ *service.OTPService
	jwtServ *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, otpServ *service.OTPService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		otpServ: otpServ,
		jwtServ: jwtServ,
	}
}

type loginRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type verifyOTPRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
}

type credentialResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login maneja POST /api/auth/login. El canal lo decide el campo presente.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid JSON or empty request"})
		return
	}
	switch {
	case strings.TrimSpace(req.Email) != "":
		h.requestOTP(c, domain.EmailContact(req.Email))
	case strings.TrimSpace(req.PhoneNumber) != "":
		h.requestOTP(c, domain.PhoneContact(req.PhoneNumber))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid input. Provide 'email' or 'phone_number'"})
	}
}

// LoginEmail maneja POST /api/auth/login/email.
func (h *AuthHandler) LoginEmail(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid JSON or empty request"})
		return
	}
	h.requestOTP(c, domain.EmailContact(req.Email))
}

// LoginPhone maneja POST /api/auth/login/phone.
func (h *AuthHandler) LoginPhone(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid JSON or empty request"})
		return
	}
	h.requestOTP(c, domain.PhoneContact(req.PhoneNumber))
}

func (h *AuthHandler) requestOTP(c *gin.Context, contact domain.Contact) {
	receipt, err := h.otpServ.RequestOTP(c.Request.Context(), contact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContact):
			c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": err.Error()})
		case errors.Is(err, service.ErrDeliveryFailure):
			c.JSON(http.StatusInternalServerError, gin.H{"status": "fail", "message": "Failed to send OTP"})
		default:
			h.logger.Error("request otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "fail", "message": "Could not request OTP"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "OTP sent to " + receipt.Destination})
}

// VerifyOTP maneja POST /api/auth/verify_otp. El cuerpo se decodifica sin
// rechazar nada aquí: el servicio aplica primero el límite de intentos.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	bindErr := c.ShouldBindJSON(&req)

	var contact domain.Contact
	switch {
	case strings.TrimSpace(req.Email) != "":
		contact = domain.EmailContact(req.Email)
	case strings.TrimSpace(req.PhoneNumber) != "":
		contact = domain.PhoneContact(req.PhoneNumber)
	}

	session, err := h.otpServ.VerifyOTP(c.Request.Context(), service.VerifyOTPInput{
		Source:  c.ClientIP(),
		Contact: contact,
		Code:    req.OTP,
	})
	if err != nil {
		status, message := verifyErrorResponse(err)
		if status == http.StatusBadRequest && bindErr != nil {
			message = "Invalid JSON"
		} else if errors.Is(err, service.ErrInvalidContact) && contact.IsZero() {
			message = "Missing email or phone_number"
		}
		if status == http.StatusInternalServerError {
			h.logger.Error("verify otp failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"status": "error", "message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"identity_id": session.User.ID,
		"credential": credentialResponse{
			AccessToken:  session.Tokens.AccessToken,
			RefreshToken: session.Tokens.RefreshToken,
			ExpiresIn:    session.Tokens.ExpiresIn,
		},
	})
}

func verifyErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many OTP attempts. Try again later."
	case errors.Is(err, service.ErrInvalidOTPFormat), errors.Is(err, service.ErrInvalidContact):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, service.ErrChallengeNotFound):
		return http.StatusBadRequest, "OTP session not found"
	case errors.Is(err, service.ErrOTPExpired):
		return http.StatusForbidden, "OTP expired"
	case errors.Is(err, service.ErrOTPInvalid):
		return http.StatusUnauthorized, "Invalid OTP"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Could not verify OTP"
	}
}

// RefreshToken maneja POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "refresh_token is required"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.RefreshPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "credential": credentialResponse(tokens)})
}

// Logout maneja POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "refresh_token is required"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "jwt not configured"})
		return
	}
	if err := h.jwtServ.RevokeRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		h.logger.Debug("logout with unusable refresh token", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}
