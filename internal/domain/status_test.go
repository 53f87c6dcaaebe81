package domain

import "testing"

func TestNormalizeStatusSpanish(t *testing.T) {
	cases := map[string]OrderStatus{
		"pendiente":   OrderStatusPending,
		"procesando":  OrderStatusProcessing,
		"en_espera":   OrderStatusOnHold,
		"en espera":   OrderStatusOnHold,
		"EN-ESPERA":   OrderStatusOnHold,
		"completado":  OrderStatusCompleted,
		"cancelado":   OrderStatusCancelled,
		"reembolsado": OrderStatusRefunded,
		"fallido":     OrderStatusFailed,
	}
	for input, want := range cases {
		got, ok := NormalizeStatus(input)
		if !ok {
			t.Fatalf("NormalizeStatus(%q) unexpectedly unrecognized", input)
		}
		if got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeStatusPassthrough(t *testing.T) {
	for status := range canonicalStatuses {
		got, ok := NormalizeStatus(string(status))
		if !ok || got != status {
			t.Fatalf("NormalizeStatus(%q) = (%q, %v), want passthrough", status, got, ok)
		}
	}
	if got, ok := NormalizeStatus("wc-processing"); !ok || got != OrderStatusProcessing {
		t.Fatalf("wc- prefix not stripped: got (%q, %v)", got, ok)
	}
	if got, ok := NormalizeStatus("on_hold"); !ok || got != OrderStatusOnHold {
		t.Fatalf("underscore variant: got (%q, %v)", got, ok)
	}
}

func TestNormalizeStatusFallback(t *testing.T) {
	got, ok := NormalizeStatus("bogus")
	if ok {
		t.Fatal("expected bogus status to be unrecognized")
	}
	if got != OrderStatusPending {
		t.Fatalf("fallback = %q, want pending", got)
	}
	if got, _ := NormalizeStatus(""); got != OrderStatusPending {
		t.Fatalf("empty input fallback = %q, want pending", got)
	}
}

func TestNormalizeStatusIdempotent(t *testing.T) {
	inputs := []string{
		"pendiente", "procesando", "en_espera", "completado", "cancelado",
		"reembolsado", "fallido", "pending", "processing", "on-hold",
		"completed", "cancelled", "refunded", "failed", "auto-draft",
		"checkout-draft", "bogus", "",
	}
	for _, input := range inputs {
		once, _ := NormalizeStatus(input)
		twice, ok := NormalizeStatus(string(once))
		if !ok {
			t.Fatalf("NormalizeStatus output %q not recognized on second pass", once)
		}
		if twice != once {
			t.Fatalf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestStatusToSpanishRoundTrip(t *testing.T) {
	for spanish, status := range spanishStatuses {
		if got := StatusToSpanish(status); got != spanish {
			t.Fatalf("StatusToSpanish(%q) = %q, want %q", status, got, spanish)
		}
	}
	if got := StatusToSpanish(OrderStatusAutoDraft); got != "pendiente" {
		t.Fatalf("draft statuses should map to pendiente, got %q", got)
	}
}

func TestNormalizeOrigin(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "web", want: "web", ok: true},
		{input: "pos", want: "pos", ok: true},
		{input: "Presencial", want: "pos", ok: true},
		{input: "tienda", want: "web", ok: true},
		{input: "telefono", want: "phone", ok: true},
		{input: "mystery", want: "web", ok: false},
		{input: "", want: "web", ok: false},
	}
	for _, tc := range cases {
		got, ok := NormalizeOrigin(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizeOrigin(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizePaymentMethod(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "bacs", want: "bacs", ok: true},
		{input: "Transferencia", want: "bacs", ok: true},
		{input: "transferencia bancaria", want: "bacs", ok: true},
		{input: "efectivo", want: "cash", ok: true},
		{input: "tarjeta", want: "card", ok: true},
		{input: "webpay", want: "webpay", ok: true},
		{input: "unknown-method", want: "bacs", ok: false},
	}
	for _, tc := range cases {
		got, ok := NormalizePaymentMethod(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizePaymentMethod(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
