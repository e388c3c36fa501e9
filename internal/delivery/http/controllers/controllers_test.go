package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"seatrotation/internal/delivery/http/helpers"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// decodeEnvelope unmarshals the response envelope, leaving data raw for the caller.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *helpers.APIError) {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Data, env.Error
}
