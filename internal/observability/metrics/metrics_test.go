package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveBooking("slot_taken")
	m.ObserveEmail("patient", "sent")
	m.ObserveOutbox("delivered")
	m.ObserveProvisioning("ok", 0.3)
	m.ObservePayment("coin_purchase", "succeeded")
	m.ObserveJob("otp_sweep", "ok")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("created")); got != 2 {
		t.Fatalf("expected 2 created bookings, got %v", got)
	}
	if got := testutil.ToFloat64(m.emailsTotal.WithLabelValues("patient", "sent")); got != 1 {
		t.Fatalf("expected 1 patient email, got %v", got)
	}
	if got := testutil.ToFloat64(m.paymentsTotal.WithLabelValues("coin_purchase", "succeeded")); got != 1 {
		t.Fatalf("expected 1 coin purchase, got %v", got)
	}
	if got := testutil.CollectAndCount(m.provisionLatency); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBooking("created")
	m.ObserveProvisioning("error", 0.1)
	m.ObserveEmail("doctor", "failed")
	m.ObserveOutbox("failed")
	m.ObservePayment("wallet_topup", "failed")
	m.ObserveJob("outbox", "error")
}
