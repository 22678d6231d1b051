package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"duemate/internal/clock"
	"duemate/internal/domain"
	"duemate/internal/logger"
	"duemate/internal/notify"
	"duemate/internal/repository"
)

// CredentialIssuer emite credenciales para una identidad verificada.
type CredentialIssuer interface {
	GeneratePair(ctx context.Context, user domain.User) (TokenPair, error)
}

type OTPServiceConfig struct {
	TTL             time.Duration
	DeliveryTimeout time.Duration
	StoreTimeout    time.Duration
}

func (c OTPServiceConfig) withDefaults() OTPServiceConfig {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 5 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 3 * time.Second
	}
	return c
}

// OTPService implementa el flujo de acceso sin contraseña: emisión del código
// y su canje por credenciales.
type OTPService struct {
	logger     *zap.Logger
	identities *IdentityResolver
	challenges ChallengeStore
	gateway    notify.Gateway
	limiter    AttemptLimiter
	tokens     CredentialIssuer
	validator  *ContactValidator
	metrics    *OTPMetrics
	clock      clock.Clocker
	cfg        OTPServiceConfig
	generate   func() (string, error)
}

func NewOTPService(
	logger *zap.Logger,
	users repository.UserRepository,
	challenges ChallengeStore,
	gateway notify.Gateway,
	limiter AttemptLimiter,
	tokens CredentialIssuer,
	cfg OTPServiceConfig,
) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if challenges == nil {
		challenges = NewMemoryChallengeStore()
	}
	if gateway == nil {
		gateway = notify.NewDisabledGateway("no gateway configured")
	}
	if limiter == nil {
		limiter = NewAttemptLimiter(time.Minute, 3, nil)
	}
	clk := clock.New()
	return &OTPService{
		logger:     logger,
		identities: NewIdentityResolver(users, clk),
		challenges: challenges,
		gateway:    gateway,
		limiter:    limiter,
		tokens:     tokens,
		validator:  NewContactValidator(nil),
		clock:      clk,
		cfg:        cfg.withDefaults(),
		generate:   generateOTP,
	}
}

// WithClock reemplaza el reloj del servicio y del resolvedor de identidades.
func (s *OTPService) WithClock(c clock.Clocker) *OTPService {
	if c != nil {
		s.clock = c
		s.identities.clock = c
	}
	return s
}

func (s *OTPService) WithMetrics(m *OTPMetrics) *OTPService {
	s.metrics = m
	return s
}

// OTPReceipt confirma la emisión. Nunca incluye el código.
type OTPReceipt struct {
	UserID      string
	Destination string
	Channel     domain.Channel
	ExpiresAt   time.Time
}

// RequestOTP valida el contacto, resuelve o crea su identidad, guarda un
// challenge nuevo (reemplazando cualquier anterior) y entrega el código.
func (s *OTPService) RequestOTP(ctx context.Context, contact domain.Contact) (OTPReceipt, error) {
	channel := string(contact.Channel)
	if err := s.validator.Validate(contact); err != nil {
		s.metrics.requested(channel, "invalid")
		return OTPReceipt{}, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	user, err := s.identities.ResolveOrCreate(storeCtx, contact)
	cancel()
	if err != nil {
		s.metrics.requested(channel, "store_error")
		s.logger.Error("resolve identity failed",
			zap.String("contact", logger.MaskContact(contact.Value)),
			zap.Error(err),
		)
		return OTPReceipt{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	code, err := s.generate()
	if err != nil {
		s.metrics.requested(channel, "generate_error")
		return OTPReceipt{}, fmt.Errorf("generate otp: %w", err)
	}
	challenge := domain.Challenge{Code: code, IssuedAt: s.clock.Now()}

	storeCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
	err = s.challenges.Put(storeCtx, contact.Identifier(), challenge)
	cancel()
	if err != nil {
		s.metrics.requested(channel, "store_error")
		s.logger.Error("store challenge failed",
			zap.String("contact", logger.MaskContact(contact.Value)),
			zap.Error(err),
		)
		return OTPReceipt{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	err = s.gateway.Send(sendCtx, notify.OTPMessage(contact, code, s.cfg.TTL))
	cancel()
	if err != nil {
		s.metrics.requested(channel, "delivery_failed")
		s.logger.Warn("otp delivery failed",
			zap.String("channel", channel),
			zap.String("contact", logger.MaskContact(contact.Value)),
			zap.Error(err),
		)
		return OTPReceipt{}, fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}

	s.metrics.requested(channel, "sent")
	s.logger.Info("otp issued",
		zap.String("channel", channel),
		zap.String("contact", logger.MaskContact(contact.Value)),
		zap.String("user_id", user.ID),
	)
	return OTPReceipt{
		UserID:      user.ID,
		Destination: contact.Value,
		Channel:     contact.Channel,
		ExpiresAt:   challenge.IssuedAt.Add(s.cfg.TTL),
	}, nil
}

type VerifyOTPInput struct {
	// Source identifica al cliente para el límite de intentos.
	Source  string
	Contact domain.Contact
	Code    string
}

type VerifiedSession struct {
	User   domain.User
	Tokens TokenPair
}

// VerifyOTP canjea un código por credenciales. Todo challenge que se
// encuentre vencido o con código distinto queda eliminado, y el canje
// exitoso también lo elimina, de modo que cada código sirve una sola vez.
func (s *OTPService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (VerifiedSession, error) {
	allowed, err := s.limiter.Allow(ctx, sourceKey(in.Source))
	if err != nil {
		s.metrics.verified("store_error")
		s.logger.Error("otp attempt limiter unavailable", zap.String("source", logger.MaskIP(in.Source)), zap.Error(err))
		return VerifiedSession{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if !allowed {
		s.metrics.verified("rate_limited")
		s.logger.Warn("otp verification rate limited", zap.String("source", logger.MaskIP(in.Source)))
		return VerifiedSession{}, ErrRateLimited
	}

	code := in.Code
	if !isValidOTPCode(code) {
		s.metrics.verified("invalid")
		return VerifiedSession{}, ErrInvalidOTPFormat
	}
	if err := s.validator.Validate(in.Contact); err != nil {
		s.metrics.verified("invalid")
		return VerifiedSession{}, err
	}

	id := in.Contact.Identifier()
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	challenge, ok, err := s.challenges.Get(storeCtx, id)
	if err != nil {
		s.metrics.verified("store_error")
		return VerifiedSession{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if !ok {
		s.metrics.verified("not_found")
		return VerifiedSession{}, ErrChallengeNotFound
	}

	if challenge.Expired(s.clock.Now(), s.cfg.TTL) {
		s.discard(storeCtx, id, challenge)
		s.metrics.verified("expired")
		return VerifiedSession{}, ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		s.discard(storeCtx, id, challenge)
		s.metrics.verified("mismatch")
		s.logger.Info("otp mismatch", zap.String("contact", logger.MaskContact(id)))
		return VerifiedSession{}, ErrOTPInvalid
	}

	user, err := s.identities.Resolve(storeCtx, in.Contact)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.verified("unknown_identity")
			return VerifiedSession{}, ErrUserNotFound
		}
		s.metrics.verified("store_error")
		return VerifiedSession{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	won, err := s.challenges.Consume(storeCtx, id, challenge)
	if err != nil {
		s.metrics.verified("store_error")
		return VerifiedSession{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if !won {
		s.metrics.verified("not_found")
		return VerifiedSession{}, ErrChallengeNotFound
	}

	if s.tokens == nil {
		return VerifiedSession{}, ErrCredentialIssue
	}
	pair, err := s.tokens.GeneratePair(ctx, user)
	if err != nil {
		s.metrics.verified("credential_error")
		s.logger.Error("issue credential failed", zap.String("user_id", user.ID), zap.Error(err))
		return VerifiedSession{}, fmt.Errorf("%w: %w", ErrCredentialIssue, err)
	}

	s.metrics.verified("success")
	s.logger.Info("otp verified", zap.String("user_id", user.ID))
	return VerifiedSession{User: user, Tokens: pair}, nil
}

func (s *OTPService) discard(ctx context.Context, id string, ch domain.Challenge) {
	if _, err := s.challenges.Consume(ctx, id, ch); err != nil {
		s.logger.Warn("discard challenge failed", zap.String("contact", logger.MaskContact(id)), zap.Error(err))
	}
}

func sourceKey(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return "unknown"
	}
	return source
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
