package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWebSocketConn struct {
	sent [][]byte
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockWebSocketConn) responses(t *testing.T) []WebSocketCardResponse {
	t.Helper()
	out := make([]WebSocketCardResponse, len(m.sent))
	for i, data := range m.sent {
		require.NoError(t, json.Unmarshal(data, &out[i]))
	}
	return out
}

func TestServer_HandleWebSocketMessage(t *testing.T) {
	srv := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	tests := []struct {
		name       string
		message    string
		wantStatus []string
		wantError  string
	}{
		{
			name:       "fragments",
			message:    `{"type":"fragments","fragments":` + cardFragments + `}`,
			wantStatus: []string{"processing", "completed"},
		},
		{
			name:       "invalid json",
			message:    `{`,
			wantStatus: []string{"error"},
			wantError:  "invalid_request",
		},
		{
			name:       "unknown type",
			message:    `{"type":"pdf"}`,
			wantStatus: []string{"processing", "error"},
			wantError:  "invalid_request",
		},
		{
			name:       "missing fragments",
			message:    `{"type":"fragments"}`,
			wantStatus: []string{"processing", "error"},
			wantError:  "invalid_request",
		},
		{
			name:       "missing image",
			message:    `{"type":"image"}`,
			wantStatus: []string{"processing", "error"},
			wantError:  "invalid_request",
		},
		{
			name:       "malformed fragments",
			message:    `{"type":"fragments","fragments":{"a":1}}`,
			wantStatus: []string{"processing", "error"},
			wantError:  "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			srv.handleWebSocketMessage(req, conn, []byte(tt.message))

			responses := conn.responses(t)
			statuses := make([]string, len(responses))
			for i, r := range responses {
				statuses[i] = r.Status
			}
			assert.Equal(t, tt.wantStatus, statuses)

			last := responses[len(responses)-1]
			assert.Equal(t, tt.wantError, last.ErrorType)
		})
	}
}

func TestServer_WebSocketRoundTrip(t *testing.T) {
	srv := newTestServer(t, true)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	// JSON uploads go through the fragments engine like any other card file.
	msg := map[string]any{"type": "image", "filename": "card.json", "image": []byte(cardFragments)}
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var processing, completed struct {
		Status string `json:"status"`
		Result struct {
			ID     uint `json:"id"`
			Record struct {
				Name string `json:"name"`
			} `json:"record"`
		} `json:"result"`
	}
	require.NoError(t, conn.ReadJSON(&processing))
	assert.Equal(t, "processing", processing.Status)
	require.NoError(t, conn.ReadJSON(&completed))
	assert.Equal(t, "completed", completed.Status)
	assert.NotZero(t, completed.Result.ID)
	assert.Equal(t, "Jane Doe", completed.Result.Record.Name)
}
