package orange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/canteen-platform/order-core/internal/providers"
	"github.com/canteen-platform/order-core/internal/service/models/paymethod"
	"github.com/spf13/viper"
)

// Client talks to the Orange Money web payment API. Orange assigns a
// pay_token on payment creation; that token is our transaction id.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	callbackURL  string
	httpClient   *http.Client
}

func NewClient() *Client {
	timeout := viper.GetDuration("payments.provider_timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      viper.GetString("payments.orange.base_url"),
		clientID:     os.Getenv("ORANGE_MONEY_CLIENT_ID"),
		clientSecret: os.Getenv("ORANGE_MONEY_CLIENT_SECRET"),
		callbackURL:  viper.GetString("payments.orange.callback_url"),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is used by tests to point the client at a fake server.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) Method() paymethod.Method {
	return paymethod.MethodOrangeMoney
}

type webPaymentPayload struct {
	MerchantKey string `json:"merchant_key"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	NotifURL    string `json:"notif_url"`
	Lang        string `json:"lang"`
	Reference   string `json:"reference"`
}

type webPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	PayToken   string `json:"pay_token"`
}

// RequestToPay creates a web payment session and returns the redirect URL the
// customer completes the payment on.
func (c *Client) RequestToPay(ctx context.Context, in providers.RequestToPayInput) (providers.RequestToPayResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.RequestToPayResult{}, err
	}

	payload := webPaymentPayload{
		MerchantKey: c.clientID,
		Currency:    in.Currency,
		OrderID:     in.Reference,
		Amount:      in.Amount,
		ReturnURL:   c.callbackURL,
		CancelURL:   c.callbackURL,
		NotifURL:    c.callbackURL,
		Lang:        "en",
		Reference:   in.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.RequestToPayResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webpayment", bytes.NewReader(body))
	if err != nil {
		return providers.RequestToPayResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return providers.RequestToPayResult{}, providers.ErrUnresolved
		}

		return providers.RequestToPayResult{}, fmt.Errorf("orange web payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return providers.RequestToPayResult{}, fmt.Errorf("orange api error: status %d", resp.StatusCode)
	}

	var wr webPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return providers.RequestToPayResult{}, fmt.Errorf("orange response decode: %w", err)
	}

	return providers.RequestToPayResult{
		TransactionID:    wr.PayToken,
		RedirectURL:      wr.PaymentURL,
		RequiresApproval: true,
	}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// GetStatus polls a web payment by its pay token.
func (c *Client) GetStatus(ctx context.Context, transactionID string) (providers.Status, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.StatusPending, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/webpayment/"+transactionID, nil)
	if err != nil {
		return providers.StatusPending, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.StatusPending, fmt.Errorf("orange status poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.StatusPending, fmt.Errorf("orange api error: status %d", resp.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return providers.StatusPending, fmt.Errorf("orange status decode: %w", err)
	}

	switch strings.ToUpper(sr.Status) {
	case "SUCCESS", "SUCCESSFUL":
		return providers.StatusSuccessful, nil
	case "FAILED":
		return providers.StatusFailed, nil
	case "EXPIRED":
		return providers.StatusExpired, nil
	default:
		return providers.StatusPending, nil
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("orange token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("orange token error: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("orange token decode: %w", err)
	}

	return tr.AccessToken, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }

	return errors.As(err, &t) && t.Timeout()
}
