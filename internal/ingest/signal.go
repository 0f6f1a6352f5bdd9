package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sentinel/internal/model"
)

// Signal type discriminators used by sources that multiplex all signal
// kinds over one stream (REST, file tail).
const (
	SignalAuthFailed     = "auth_failed"
	SignalServiceCall    = "call_service"
	SignalDeviceRegistry = "device_registry"
)

var errUnknownSignal = errors.New("unknown signal type")

// rawSignal is the alias-tolerant wire form. Different shippers name the
// same field differently, so every alias is tried in order.
type rawSignal map[string]any

func decodeRaw(data []byte) (rawSignal, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	raw := make(rawSignal, len(obj))
	for key, val := range obj {
		raw[strings.ToLower(key)] = val
	}
	return raw, nil
}

func (r rawSignal) str(keys ...string) string {
	for _, key := range keys {
		if val, ok := r[key]; ok {
			s := strings.TrimSpace(fmt.Sprint(val))
			if s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

// timestamp accepts RFC 3339 strings or unix seconds (integer or float).
// A missing or unparseable value yields the zero time; the monitor then
// stamps the signal with its own clock.
func (r rawSignal) timestamp() time.Time {
	s := r.str("timestamp", "time", "ts")
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
	}
	return time.Time{}
}

func DecodeAuthFailure(data []byte) (model.AuthFailureSignal, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return model.AuthFailureSignal{}, err
	}
	return authFailureFromRaw(raw), nil
}

func authFailureFromRaw(raw rawSignal) model.AuthFailureSignal {
	return model.AuthFailureSignal{
		RemoteAddr: raw.str("remote_addr", "ip", "source_ip", "address"),
		Timestamp:  raw.timestamp(),
	}
}

func DecodeServiceCall(data []byte) (model.ServiceCallSignal, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return model.ServiceCallSignal{}, err
	}
	return serviceCallFromRaw(raw), nil
}

func serviceCallFromRaw(raw rawSignal) model.ServiceCallSignal {
	return model.ServiceCallSignal{
		Domain:  raw.str("domain"),
		Service: raw.str("service"),
		UserID:  raw.str("user_id", "user", "context_user_id"),
	}
}

func DecodeDeviceRegistry(data []byte) (model.DeviceRegistrySignal, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return model.DeviceRegistrySignal{}, err
	}
	return deviceRegistryFromRaw(raw), nil
}

func deviceRegistryFromRaw(raw rawSignal) model.DeviceRegistrySignal {
	return model.DeviceRegistrySignal{
		Action:   raw.str("action"),
		DeviceID: raw.str("device_id", "device"),
	}
}

// DispatchSignal decodes a multiplexed signal and routes it to the handler
// based on its type field.
func DispatchSignal(data []byte, handler Handler) error {
	raw, err := decodeRaw(data)
	if err != nil {
		return err
	}
	switch raw.str("type", "event_type", "signal") {
	case SignalAuthFailed:
		handler.HandleAuthFailure(authFailureFromRaw(raw))
	case SignalServiceCall:
		handler.HandleServiceCall(serviceCallFromRaw(raw))
	case SignalDeviceRegistry:
		handler.HandleDeviceRegistry(deviceRegistryFromRaw(raw))
	default:
		return errUnknownSignal
	}
	return nil
}
