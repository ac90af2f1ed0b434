package streambus

import (
	"encoding/json"
	"time"

	"github.com/tradefleet/core/internal/model"
)

func encodeDLQEnvelope(originalStream string, payload []byte, failures int, cause error) ([]byte, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	env := model.DLQEnvelope{
		OriginalStream: originalStream,
		Payload:        payload,
		Failures:       failures,
		LastError:      msg,
		Ts:             time.Now().UTC(),
	}
	return json.Marshal(env)
}

func decodeDLQEnvelope(raw []byte) (model.DLQEnvelope, error) {
	var env model.DLQEnvelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
