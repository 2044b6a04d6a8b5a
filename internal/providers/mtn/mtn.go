package mtn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/canteen-platform/order-core/internal/providers"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/spf13/viper"
)

// Client talks to the MTN Mobile Money collections API. The X-Reference-Id we
// send on request-to-pay doubles as the transaction id for status polls.
type Client struct {
	baseURL         string
	subscriptionKey string
	apiKey          string
	environment     string
	httpClient      *http.Client
}

func NewClient() *Client {
	timeout := viper.GetDuration("payments.provider_timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:         viper.GetString("payments.mtn.base_url"),
		subscriptionKey: os.Getenv("MTN_MOMO_SUBSCRIPTION_KEY"),
		apiKey:          os.Getenv("MTN_MOMO_API_KEY"),
		environment:     viper.GetString("payments.mtn.environment"),
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is used by tests to point the client at a fake server.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:     baseURL,
		environment: "sandbox",
		httpClient:  httpClient,
	}
}

func (c *Client) Method() paymethod.Method {
	return paymethod.MethodMTNMoMo
}

type requestToPayPayload struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ExternalID string `json:"externalId"`
	Payer      struct {
		PartyIDType string `json:"partyIdType"`
		PartyID     string `json:"partyId"`
	} `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// RequestToPay submits a collection request. MTN replies 202 Accepted; the
// customer approves on their phone and settlement arrives via webhook/poll.
func (c *Client) RequestToPay(ctx context.Context, in providers.RequestToPayInput) (providers.RequestToPayResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.RequestToPayResult{}, err
	}

	payload := requestToPayPayload{
		Amount:       strconv.FormatInt(in.Amount, 10),
		Currency:     in.Currency,
		ExternalID:   in.Reference,
		PayerMessage: in.Description,
		PayeeNote:    "Enterprise Canteen Payment",
	}
	payload.Payer.PartyIDType = "MSISDN"
	payload.Payer.PartyID = strings.TrimPrefix(in.PhoneNumber, "+")

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.RequestToPayResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return providers.RequestToPayResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Reference-Id", in.Reference)
	req.Header.Set("X-Target-Environment", c.environment)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return providers.RequestToPayResult{TransactionID: in.Reference}, providers.ErrUnresolved
		}

		return providers.RequestToPayResult{}, fmt.Errorf("mtn request to pay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return providers.RequestToPayResult{}, fmt.Errorf("mtn api error: status %d", resp.StatusCode)
	}

	return providers.RequestToPayResult{
		TransactionID:    in.Reference,
		RequiresApproval: true,
	}, nil
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// GetStatus polls a request-to-pay by its reference id.
func (c *Client) GetStatus(ctx context.Context, transactionID string) (providers.Status, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.StatusPending, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/collection/v1_0/requesttopay/"+transactionID, nil)
	if err != nil {
		return providers.StatusPending, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Target-Environment", c.environment)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.StatusPending, fmt.Errorf("mtn status poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.StatusPending, fmt.Errorf("mtn api error: status %d", resp.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return providers.StatusPending, fmt.Errorf("mtn status decode: %w", err)
	}

	switch strings.ToUpper(sr.Status) {
	case "SUCCESSFUL":
		return providers.StatusSuccessful, nil
	case "FAILED":
		return providers.StatusFailed, nil
	case "TIMEOUT", "EXPIRED":
		return providers.StatusExpired, nil
	default:
		return providers.StatusPending, nil
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mtn token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mtn token error: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("mtn token decode: %w", err)
	}

	return tr.AccessToken, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }

	return errors.As(err, &t) && t.Timeout()
}
