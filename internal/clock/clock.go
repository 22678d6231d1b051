// Package clock abstrae la hora actual para poder reemplazarla en tests.
package clock

import "time"

// Clocker devuelve la hora actual.
type Clocker interface {
	Now() time.Time
}

// TimeClocker es el reloj de producción basado en time.Now.
type TimeClocker struct{}

func New() *TimeClocker {
	return &TimeClocker{}
}

func (*TimeClocker) Now() time.Time {
	return time.Now().UTC()
}
