package forms

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"
)

type httpForwarder struct {
	url    string
	client *resty.Client
}

// NewHTTPForwarder posts submissions URL-encoded to targetURL.
func NewHTTPForwarder(targetURL string, timeout time.Duration) Forwarder {
	return &httpForwarder{
		url: targetURL,
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0),
	}
}

func (f *httpForwarder) Forward(ctx context.Context, values url.Values) error {
	formData := make(map[string]string, len(values))
	for key, vals := range values {
		formData[key] = strings.Join(vals, ", ")
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetFormData(formData).
		Post(f.url)
	if err != nil {
		return fmt.Errorf("failed to forward submission: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}
