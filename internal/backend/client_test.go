package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zafo-tickets/internal/logger"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("keycloak down") }

const orderTickets = `{
  "success": true,
  "message": "ok",
  "data": [
    {"eventTitle":"Jazz Night","eventDate":"2025-03-15 20:00","eventLocation":"Blue Hall","attendeeName":"Ada","attendeeEmail":"ada@example.com","ticketNumber":"TKT-1","ticketPrice":10,"currency":"USD","purchaseDate":"2025-03-01"},
    {"eventTitle":"Jazz Night","eventDate":"2025-03-15 20:00","eventLocation":"Blue Hall","attendeeName":"Bob","attendeeEmail":"bob@example.com","ticketNumber":"TKT-2","ticketPrice":12.5,"currency":"USD","purchaseDate":"2025-03-01"}
  ]
}`

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client(), staticToken("svc-token"), logger.NewLoggerWithWriter(io.Discard))
}

func TestTicketsByOrder(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders/ord-9/tickets", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(orderTickets))
	})

	tickets, err := client.TicketsByOrder(context.Background(), "ord-9")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "TKT-1", tickets[0].TicketNumber)
	assert.Equal(t, 12.5, tickets[1].TicketPrice)
}

func TestTicket(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tickets/TKT 7", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"ticketNumber":"TKT 7","attendeeName":"Ada"}}`))
	})

	ticket, err := client.Ticket(context.Background(), "TKT 7")
	require.NoError(t, err)
	assert.Equal(t, "Ada", ticket.AttendeeName)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"success":false,"message":"order not found"}`, want: ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, want: ErrUpstream},
		{name: "unsuccessful envelope", status: http.StatusOK, body: `{"success":false,"message":"order locked"}`, want: ErrUpstream},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: ErrUpstream},
		{name: "wrong data shape", status: http.StatusOK, body: `{"success":true,"data":{"ticketNumber":"x"}}`, want: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.TicketsByOrder(context.Background(), "ord-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClientTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), failingToken{}, logger.NewLoggerWithWriter(io.Discard))
	_, err := client.Ticket(context.Background(), "TKT-1")
	assert.ErrorContains(t, err, "keycloak down")
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, nil, nil, logger.NewLoggerWithWriter(io.Discard))
	_, err := client.TicketsByOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrUpstream)
}
