package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/clienthunter/leadwatch/internal/metrics"
)

const (
	statusSuccess  = "success"
	statusError    = "error"
	statusNotFound = "not_found" // analytics read endpoints
)

// envelope is the {status, data?, message?} shape of the lead-generation resources
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// resultEnvelope is the {status, result} shape of the analysis endpoints
type resultEnvelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeFailure(op, reason string, err error) error {
	metrics.APIRequestsTotal.WithLabelValues(op, "decode_error").Inc()
	return &DecodeError{Op: op, Reason: reason, Err: err}
}

func parseEnvelope(op string, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, decodeFailure(op, "invalid JSON envelope", err)
	}
	switch env.Status {
	case statusSuccess:
		return env, nil
	case statusError:
		msg := env.Message
		if msg == "" {
			msg = DefaultFailureMessage
		}
		return env, &RequestFailedError{Op: op, Message: msg}
	case "":
		return env, decodeFailure(op, "missing status", nil)
	default:
		return env, decodeFailure(op, "unknown status "+env.Status, nil)
	}
}

// DecodeData decodes a success envelope whose data must be present
func DecodeData[T any](op string, body []byte) (T, error) {
	var out T
	env, err := parseEnvelope(op, body)
	if err != nil {
		return out, err
	}
	if !present(env.Data) {
		return out, decodeFailure(op, "success envelope without data", nil)
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, decodeFailure(op, "data does not match the expected shape", err)
	}
	return out, nil
}

// DecodeAck decodes a success envelope that carries at most a message
func DecodeAck(op string, body []byte) (string, error) {
	env, err := parseEnvelope(op, body)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// DecodeResult decodes an analysis envelope. Any status other than success
// is reported using the server message or fallback.
func DecodeResult[T any](op, fallback string, body []byte) (T, error) {
	var out T
	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return out, decodeFailure(op, "invalid JSON envelope", err)
	}
	if env.Status == "" {
		return out, decodeFailure(op, "missing status", nil)
	}
	if env.Status != statusSuccess {
		code := 0
		if env.Status == statusNotFound {
			code = http.StatusNotFound
		}
		msg := env.Detail
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = fallback
		}
		return out, &RequestFailedError{Op: op, StatusCode: code, Message: msg}
	}
	if !present(env.Result) {
		return out, decodeFailure(op, "success envelope without result", nil)
	}
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return out, decodeFailure(op, "result does not match the expected shape", err)
	}
	return out, nil
}
