package notify

import (
	"go.uber.org/zap"

	"duemate/internal/config"
)

// FromConfig arma el gateway de entrega según la configuración. En modo demo
// los mensajes sólo se registran; un canal sin credenciales queda deshabilitado.
func FromConfig(cfg *config.Config, log *zap.Logger) Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DemoMode {
		log.Warn("demo mode enabled, messages are logged instead of delivered")
		return NewRecordingGateway(log)
	}

	email := NewDisabledGateway("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := NewSMTPSender(SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err != nil {
			log.Warn("smtp sender init failed", zap.Error(err))
		} else {
			email = sender
		}
	}

	sms := NewDisabledGateway("sms gateway not configured")
	if cfg.SMSGatewayURL != "" {
		gw, err := NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSGatewayUser, cfg.SMSGatewayPass)
		if err != nil {
			log.Warn("sms gateway init failed", zap.Error(err))
		} else {
			sms = gw
		}
	}

	return NewRouter(email, sms)
}
