package ingest

import (
	"testing"
	"time"

	"sentinel/internal/model"
)

type recordingHandler struct {
	auth    []model.AuthFailureSignal
	service []model.ServiceCallSignal
	device  []model.DeviceRegistrySignal
}

func (r *recordingHandler) HandleAuthFailure(sig model.AuthFailureSignal) {
	r.auth = append(r.auth, sig)
}

func (r *recordingHandler) HandleServiceCall(sig model.ServiceCallSignal) {
	r.service = append(r.service, sig)
}

func (r *recordingHandler) HandleDeviceRegistry(sig model.DeviceRegistrySignal) {
	r.device = append(r.device, sig)
}

func TestDecodeAuthFailureAliases(t *testing.T) {
	sig, err := DecodeAuthFailure([]byte(`{"remote_addr":"8.8.8.8","timestamp":"2026-03-01T12:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.RemoteAddr != "8.8.8.8" {
		t.Fatalf("remote addr: %s", sig.RemoteAddr)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !sig.Timestamp.Equal(want) {
		t.Fatalf("timestamp: %s", sig.Timestamp)
	}

	sig, err = DecodeAuthFailure([]byte(`{"IP":"203.0.113.7"}`))
	if err != nil {
		t.Fatalf("decode alias: %v", err)
	}
	if sig.RemoteAddr != "203.0.113.7" {
		t.Fatalf("alias remote addr: %s", sig.RemoteAddr)
	}
	if !sig.Timestamp.IsZero() {
		t.Fatalf("missing timestamp should be zero: %s", sig.Timestamp)
	}
}

func TestDecodeUnixTimestamp(t *testing.T) {
	sig, err := DecodeAuthFailure([]byte(`{"ip":"8.8.8.8","ts":1772366400}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Timestamp.IsZero() {
		t.Fatalf("unix timestamp not parsed")
	}
	if sig.Timestamp.Year() != 2026 {
		t.Fatalf("unix timestamp year: %d", sig.Timestamp.Year())
	}
}

func TestDecodeServiceCall(t *testing.T) {
	sig, err := DecodeServiceCall([]byte(`{"domain":"shell_command","service":"reboot","user_id":"u1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Domain != "shell_command" || sig.Service != "reboot" || sig.UserID != "u1" {
		t.Fatalf("signal: %+v", sig)
	}
}

func TestDecodeDeviceRegistry(t *testing.T) {
	sig, err := DecodeDeviceRegistry([]byte(`{"action":"create","device":"dev1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Action != "create" || sig.DeviceID != "dev1" {
		t.Fatalf("signal: %+v", sig)
	}
}

func TestDispatchSignalRouting(t *testing.T) {
	h := &recordingHandler{}
	inputs := []string{
		`{"type":"auth_failed","ip":"8.8.8.8"}`,
		`{"type":"call_service","domain":"shell_command","service":"x"}`,
		`{"type":"device_registry","action":"create","device_id":"dev1"}`,
	}
	for _, in := range inputs {
		if err := DispatchSignal([]byte(in), h); err != nil {
			t.Fatalf("dispatch %s: %v", in, err)
		}
	}
	if len(h.auth) != 1 || len(h.service) != 1 || len(h.device) != 1 {
		t.Fatalf("routing: %d/%d/%d", len(h.auth), len(h.service), len(h.device))
	}

	if err := DispatchSignal([]byte(`{"type":"something_else"}`), h); err == nil {
		t.Fatalf("unknown signal type accepted")
	}
	if err := DispatchSignal([]byte(`not json`), h); err == nil {
		t.Fatalf("invalid json accepted")
	}
}
