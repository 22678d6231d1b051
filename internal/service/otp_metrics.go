package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// OTPMetrics cuenta emisiones y verificaciones de OTP por resultado.
type OTPMetrics struct {
	Requests      *prometheus.CounterVec
	Verifications *prometheus.CounterVec
}

func NewOTPMetrics(reg prometheus.Registerer) (*OTPMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: "duemate",
		Subsystem: "otp",
		Name:      "requests_total",
		Help:      "OTP issuance attempts partitioned by channel and outcome.",
	}, []string{"channel", "outcome"})
	if err != nil {
		return nil, err
	}
	verifications, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: "duemate",
		Subsystem: "otp",
		Name:      "verifications_total",
		Help:      "OTP verification attempts partitioned by outcome.",
	}, []string{"outcome"})
	if err != nil {
		return nil, err
	}
	return &OTPMetrics{Requests: requests, Verifications: verifications}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		vec = existing
	}
	return vec, nil
}

func (m *OTPMetrics) requested(channel, outcome string) {
	if m == nil || m.Requests == nil {
		return
	}
	m.Requests.WithLabelValues(channel, outcome).Inc()
}

func (m *OTPMetrics) verified(outcome string) {
	if m == nil || m.Verifications == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}
