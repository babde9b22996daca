package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrUpstream = errors.New("ticket backend error")
)

// TokenSource supplies the bearer token sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client reads ticket records from the platform's ticket service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  log,
	}
}

func (c *Client) TicketsByOrder(ctx context.Context, orderID string) ([]models.TicketRecord, error) {
	var tickets []models.TicketRecord
	if err := c.get(ctx, "/api/v1/orders/"+url.PathEscape(orderID)+"/tickets", &tickets); err != nil {
		return nil, fmt.Errorf("tickets for order %s: %w", orderID, err)
	}
	return tickets, nil
}

func (c *Client) Ticket(ctx context.Context, ticketNumber string) (*models.TicketRecord, error) {
	var ticket models.TicketRecord
	if err := c.get(ctx, "/api/v1/tickets/"+url.PathEscape(ticketNumber), &ticket); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticketNumber, err)
	}
	return &ticket, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("obtain service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("BACKEND", fmt.Sprintf("GET %s answered %d: %s", path, resp.StatusCode, env.Message))
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrUpstream, decodeErr)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrUpstream, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrUpstream, err)
	}
	return nil
}
