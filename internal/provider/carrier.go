package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/observability"
)

const (
	defaultCarrierTimeout = 10 * time.Second
	requestIDHeader       = "X-Request-ID"
)

type assignRequest struct {
	AccountID string `json:"accountId"`
}

var _ Dispatcher = (*CarrierClient)(nil)

// CarrierClient executes number actions against the carrier REST API.
type CarrierClient struct {
	client  *resty.Client
	baseURL string
}

func NewCarrierClient(baseURL string, token string, timeout time.Duration) (*CarrierClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultCarrierTimeout
	}
	client.SetTimeout(timeout)
	if token = strings.TrimSpace(token); token != "" {
		client.SetAuthToken(token)
	}

	return NewCarrierClientWithClient(baseURL, client)
}

func NewCarrierClientWithClient(baseURL string, client *resty.Client) (*CarrierClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("carrier api url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid carrier api url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultCarrierTimeout)
	}
	client.SetRetryCount(0)

	return &CarrierClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *CarrierClient) Dispatch(
	ctx context.Context,
	action domain.ActionKind,
	number domain.PhoneNumber,
	params domain.JobParams,
) (*Response, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("carrier client is not initialized")
	}
	if strings.TrimSpace(number.ID) == "" {
		return nil, fmt.Errorf("%w: number id is required", domain.ErrValidation)
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if requestID, ok := observability.RequestIDFromContext(ctx); ok {
		req.SetHeader(requestIDHeader, requestID)
	}

	var (
		response *resty.Response
		err      error
	)
	switch action {
	case domain.ActionAssign:
		if strings.TrimSpace(params.AccountID) == "" {
			return nil, fmt.Errorf("%w: accountId is required", domain.ErrValidation)
		}
		response, err = req.
			SetHeader("Content-Type", "application/json").
			SetBody(assignRequest{AccountID: strings.TrimSpace(params.AccountID)}).
			SetPathParam("id", number.ID).
			Post(c.baseURL + "/numbers/{id}/assign")
	case domain.ActionUnassign:
		response, err = req.
			SetPathParam("id", number.ID).
			Post(c.baseURL + "/numbers/{id}/unassign")
	case domain.ActionDelete:
		response, err = req.
			SetPathParam("id", number.ID).
			Delete(c.baseURL + "/numbers/{id}")
	case domain.ActionReputationCheck:
		if strings.TrimSpace(number.E164) == "" {
			return nil, fmt.Errorf("%w: number %s has no e164 value", domain.ErrValidation, number.ID)
		}
		response, err = req.
			SetPathParam("e164", number.E164).
			Get(c.baseURL + "/reputation/{e164}")
	default:
		return nil, fmt.Errorf("%w: unsupported action %q", domain.ErrValidation, action)
	}

	if err != nil {
		return nil, &CarrierError{
			Message:   "carrier request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &CarrierError{
			Message:   "carrier returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       body,
			RequestID:  carrierRequestID(response),
		}, nil
	}

	return nil, &CarrierError{
		StatusCode: statusCode,
		Message:    carrierErrorMessage(statusCode, body),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func carrierErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("carrier returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func carrierRequestID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{requestIDHeader, "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
