package cybersource

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

const (
	testHost = "apitest.cybersource.com"
	liveHost = "api.cybersource.com"

	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

var (
	// ErrNotReady is returned by all operations when the client could not be
	// initialized with usable credentials.
	ErrNotReady = errors.New("cybersource: client is not ready")
	// ErrTransactionNotFound marks a transaction lookup that the gateway has
	// not indexed (yet).
	ErrTransactionNotFound = errors.New("cybersource: transaction not found")
)

// Client is the sole authenticated channel to the CyberSource REST API.
//
// The client holds no per-request state: every operation takes the target
// environment and resolves its host at call time, so one instance is safe
// for concurrent use across handlers and background workers. A record's
// stored environment keeps governing every later call made for it.
type Client struct {
	cfg        cfgpkg.CyberSourceConfig
	log        *zap.SugaredLogger
	httpClient *http.Client

	scheme       string
	hostOverride string
	ready        bool
	signingKey   *rsa.PrivateKey
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	c := &Client{
		cfg:        cfg.CyberSource,
		log:        log,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		scheme:     "https",
	}

	if c.cfg.MerchantID == "" || c.cfg.MerchantKey == "" {
		log.Warnw("cybersource client not ready: merchant credentials missing")
		return c
	}

	if c.cfg.AuthType == AuthTypeJWT {
		key, err := loadSigningKey(c.cfg.CertificateDir, c.cfg.CertificateFile)
		if err != nil {
			log.Warnw("cybersource client not ready", "err", err)
			return c
		}
		c.signingKey = key
	}

	c.ready = true
	return c
}

// IsReady reports whether the client was initialized with usable merchant
// credentials (and, for JWT auth, a certificate).
func (c *Client) IsReady() bool {
	return c.ready
}

// hostFor maps an environment name to a request host. Unknown names fall
// back to the test host; an empty name falls back to the configured
// merchant environment.
func (c *Client) hostFor(env string) string {
	if c.hostOverride != "" {
		return c.hostOverride
	}
	if env == "" {
		env = c.cfg.Environment
	}
	if strings.EqualFold(env, EnvironmentProduction) {
		return liveHost
	}
	return testHost
}

// CreatePayment executes a charge. Transport and gateway failures come back
// as *APIError; a non-nil response may still carry a decline status, which is
// the caller's concern.
func (c *Client) CreatePayment(ctx context.Context, env string, req *CreatePaymentRequest) (*PaymentResponse, error) {
	if !c.ready {
		return nil, ErrNotReady
	}

	var resp PaymentResponse
	if err := c.do(ctx, env, http.MethodPost, "/pts/v2/payments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransaction looks up a settled or pending transaction for receipts.
// Returns ErrTransactionNotFound when the gateway has no record under id,
// which immediately after a charge usually means indexing lag rather than a
// hard failure.
func (c *Client) GetTransaction(ctx context.Context, env, id string) (*TransactionDetails, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	if id == "" {
		return nil, ErrTransactionNotFound
	}

	var tx TransactionDetails
	err := c.do(ctx, env, http.MethodGet, "/tss/v2/transactions/"+id, nil, &tx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GenerateCaptureContext requests a one-time key for the browser-side
// tokenization widget. Returns an empty key when the client is not ready.
func (c *Client) GenerateCaptureContext(ctx context.Context, env, targetOrigin string) (string, error) {
	if !c.ready {
		return "", nil
	}

	// The gateway only allows unsecured HTTP on localhost development.
	if strings.Contains(targetOrigin, "localhost") {
		targetOrigin = "http://localhost"
	}

	req := &CaptureContextRequest{
		EncryptionType: "RsaOaep256",
		TargetOrigin:   targetOrigin,
	}
	var resp CaptureContextResponse
	if err := c.do(ctx, env, http.MethodPost, "/flex/v1/keys", req, &resp); err != nil {
		return "", err
	}
	return resp.KeyID, nil
}

// GetCustomer fetches a tokenized customer record.
func (c *Client) GetCustomer(ctx context.Context, env, customerID string) (*CustomerResponse, error) {
	if !c.ready {
		return nil, ErrNotReady
	}

	var resp CustomerResponse
	if err := c.do(ctx, env, http.MethodGet, "/tms/v2/customers/"+customerID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes one signed request against the host env resolves to. No
// retries: retry responsibility sits with the receipt queue and the
// recurring scheduler.
func (c *Client) do(ctx context.Context, env, method, path string, in, out any) error {
	var body []byte
	var reader io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	url := fmt.Sprintf("%s://%s%s", c.scheme, c.hostFor(env), path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.signRequest(req, body); err != nil {
		return &APIError{Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, RawBody: raw}
		var errBody struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &errBody) == nil {
			apiErr.Reason = errBody.Reason
			apiErr.Message = errBody.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.log.Warnw("cybersource request failed",
			"method", method, "path", path, "status", resp.StatusCode, "reason", apiErr.Reason)
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), RawBody: raw}
		}
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
