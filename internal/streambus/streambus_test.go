package streambus

import (
	"errors"
	"testing"
)

func TestIsBusyGroup(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: errors.New("BUSYGROUP Consumer Group name already exists"), want: true},
		{err: errors.New("some other error"), want: false},
		{err: nil, want: false},
	}
	for _, tt := range tests {
		if got := isBusyGroup(tt.err); got != tt.want {
			t.Errorf("isBusyGroup(%v)=%v, expected %v", tt.err, got, tt.want)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := encodeDLQEnvelope("exec.orders", []byte(`{"orderId":"abc"}`), 5, errors.New("boom"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	env, err := decodeDLQEnvelope(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.OriginalStream != "exec.orders" {
		t.Errorf("OriginalStream=%q", env.OriginalStream)
	}
	if env.Failures != 5 {
		t.Errorf("Failures=%d, expected 5", env.Failures)
	}
	if env.LastError != "boom" {
		t.Errorf("LastError=%q, expected boom", env.LastError)
	}
	if string(env.Payload) != `{"orderId":"abc"}` {
		t.Errorf("Payload=%s", env.Payload)
	}
}

func TestEnvelopeNilCauseLeavesLastErrorEmpty(t *testing.T) {
	raw, err := encodeDLQEnvelope("exec.orders", []byte("{}"), 1, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	env, err := decodeDLQEnvelope(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.LastError != "" {
		t.Errorf("LastError=%q, expected empty", env.LastError)
	}
}
