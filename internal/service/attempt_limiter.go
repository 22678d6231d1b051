package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"duemate/internal/clock"
)

// AttemptLimiter limita la frecuencia de intentos por clave de origen. Un
// error significa que no se pudo decidir; quien llama debe rechazar el intento.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type windowLimiter struct {
	mu        sync.Mutex
	clock     clock.Clocker
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewAttemptLimiter crea un limitador en memoria de ventana deslizante.
func NewAttemptLimiter(window time.Duration, max int, clk clock.Clocker) AttemptLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if clk == nil {
		clk = clock.New()
	}
	return &windowLimiter{
		clock:     clk,
		window:    window,
		max:       max,
		hits:      make(map[string][]time.Time),
		lastSweep: clk.Now(),
	}
}

// Allow registra el intento sólo si se admite; los rechazados no alargan el bloqueo.
func (l *windowLimiter) Allow(_ context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	recent := pruneBefore(l.hits[key], cutoff)
	if len(recent) >= l.max {
		l.hits[key] = recent
		return false, nil
	}
	l.hits[key] = append(recent, now)
	return true, nil
}

// sweep elimina las claves sin intentos dentro de la ventana.
func (l *windowLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		if recent := pruneBefore(hits, cutoff); len(recent) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = recent
		}
	}
}

// pruneBefore descarta en sitio los instantes que no son posteriores a cutoff.
// hits está ordenado porque solo se agregan instantes crecientes.
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
