package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"tours_backend/domain"
	"tours_backend/errors"
)

// Client creates and fetches checkout sessions on the external payment
// provider. Calls go through a circuit breaker so a provider outage fails
// fast instead of piling up requests.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

func NewClient(baseURL string, logger *log.Logger) domain.PaymentClient {
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     10,
		},
	}

	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		breaker: newCircuitBreaker("payment-checkout"),
		logger:  logger,
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("Circuit Breaker '%s' changed from '%s' to '%s'\n", name, from, to)
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				appErr, ok := err.(*errors.AppError)
				return ok && appErr.StatusCode >= 400 && appErr.StatusCode < 500
			},
		},
	)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*domain.CheckoutSession, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(payload)
		}

		request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		request.Header.Set("Content-Type", "application/json")

		response, err := c.client.Do(request)
		if err != nil {
			c.logger.Println(err)
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode >= 400 {
			buf, _ := io.ReadAll(response.Body)
			return nil, errors.New(string(buf), response.StatusCode)
		}

		var session domain.CheckoutSession
		if err := json.NewDecoder(response.Body).Decode(&session); err != nil {
			return nil, err
		}
		return &session, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.CheckoutSession), nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, tour *domain.Tour, user *domain.User) (*domain.CheckoutSession, error) {
	body := map[string]interface{}{
		"tour_id":   tour.ID.Hex(),
		"user_id":   user.ID.Hex(),
		"reference": fmt.Sprintf("%s-%d", tour.Slug, time.Now().Unix()),
		"name":      fmt.Sprintf("%s Tour", tour.Name),
		"summary":   tour.Summary,
		"amount":    tour.Price,
		"currency":  "usd",
		"email":     user.Email,
	}
	return c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body)
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	return c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil)
}
