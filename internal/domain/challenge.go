package domain

import "time"

// Challenge es un OTP pendiente de verificación. Nunca se modifica en sitio.
type Challenge struct {
	Code     string
	IssuedAt time.Time
}

// Expired indica si el challenge superó ttl respecto a now.
func (c Challenge) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.IssuedAt) > ttl
}

// Same compara dos challenges por código e instante de emisión.
func (c Challenge) Same(other Challenge) bool {
	return c.Code == other.Code && c.IssuedAt.Equal(other.IssuedAt)
}
