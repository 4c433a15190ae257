package expo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitnease/comms/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) Gateway {
	return NewClient(&config.Config{ExpoPushURL: url, ExpoPushTimeout: 2 * time.Second})
}

func batch() []Message {
	return []Message{
		{To: "ExponentPushToken[aaa]", Title: "Hi", Body: "Hello", Sound: "default", Priority: "high"},
		{To: "ExponentPushToken[bbb]", Title: "Hi", Body: "Hello", Sound: "default", Priority: "high"},
	}
}

func TestSendBatch_TicketsInSubmissionOrder(t *testing.T) {
	var gotMessages []Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMessages))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []Ticket{
				{Status: "ok", ID: "t1"},
				{Status: "error", Message: "gone", Details: &TicketDetails{Error: ErrDeviceNotRegistered}},
			},
		})
	}))
	defer srv.Close()

	tickets, err := testClient(srv.URL).SendBatch(context.Background(), batch())

	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.False(t, tickets[0].IsError())
	assert.True(t, tickets[1].IsError())
	assert.Equal(t, ErrDeviceNotRegistered, tickets[1].ErrorCode())
	require.Len(t, gotMessages, 2)
	assert.Equal(t, "ExponentPushToken[aaa]", gotMessages[0].To)
}

func TestSendBatch_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SendBatch(context.Background(), batch())

	require.Error(t, err)
	assert.ErrorContains(t, err, "status 503")
}

func TestSendBatch_TicketCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []Ticket{{Status: "ok", ID: "t1"}},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SendBatch(context.Background(), batch())

	require.Error(t, err)
	assert.ErrorContains(t, err, "tickets")
}

func TestTicket_ErrorCodeUnknownWhenDetailsMissing(t *testing.T) {
	ticket := Ticket{Status: "error", Message: "something broke"}
	assert.True(t, ticket.IsError())
	assert.Equal(t, "unknown", ticket.ErrorCode())
}
