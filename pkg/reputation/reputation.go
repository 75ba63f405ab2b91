package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

const (
	DefaultEndPoint = "https://urlscan.io"
	DefaultWait     = 10 * time.Second
)

var (
	//ErrNotConfigured is returned when no API key is available
	ErrNotConfigured = errors.New("reputation lookup not configured")
	//ErrLookupFailed is returned for any non-success response
	ErrLookupFailed = errors.New("reputation lookup failed")
)

//Verdict is the reputation service's assessment of a URL
type Verdict struct {
	URL       string `json:"url"`
	Malicious bool   `json:"malicious"`
	Score     int    `json:"score"`
	ResultURL string `json:"result_url,omitempty"`
}

//Client submits URLs to a urlscan-style service and reads back a verdict
type Client struct {
	EndPoint string
	APIKey   string
	//Wait is the fixed delay between submission and the single poll
	Wait   time.Duration
	client *http.Client
}

//NewClient creates a client. With an empty key every lookup returns ErrNotConfigured.
func NewClient(apiKey, endPoint string, wait time.Duration) *Client {
	if endPoint == "" {
		endPoint = DefaultEndPoint
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Client{
		EndPoint: strings.TrimSuffix(endPoint, "/"),
		APIKey:   apiKey,
		Wait:     wait,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

//Enabled reports whether lookups will be attempted
func (c *Client) Enabled() bool {
	return c != nil && c.APIKey != ""
}

type submission struct {
	URL        string `json:"url"`
	Visibility string `json:"visibility"`
}

type submissionResponse struct {
	UUID   string `json:"uuid"`
	Result string `json:"result"`
}

type resultResponse struct {
	Verdicts struct {
		Overall struct {
			Score     int  `json:"score"`
			Malicious bool `json:"malicious"`
		} `json:"overall"`
	} `json:"verdicts"`
}

//Lookup submits target, waits, then polls once for the verdict
func (c *Client) Lookup(ctx context.Context, target string) (Verdict, error) {
	if !c.Enabled() {
		return Verdict{}, ErrNotConfigured
	}

	body, _ := json.Marshal(submission{URL: target, Visibility: "unlisted"})
	var sub submissionResponse
	if err := c.do(ctx, http.MethodPost, c.EndPoint+"/api/v1/scan/", body, &sub); err != nil {
		return Verdict{}, fmt.Errorf("submitting %s: %w", target, err)
	}
	if sub.UUID == "" {
		return Verdict{}, fmt.Errorf("%w: submission of %s returned no id", ErrLookupFailed, target)
	}

	select {
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	case <-time.After(c.Wait):
	}

	var result resultResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/result/%s/", c.EndPoint, sub.UUID), nil, &result); err != nil {
		return Verdict{}, fmt.Errorf("polling %s: %w", target, err)
	}
	return Verdict{
		URL:       target,
		Malicious: result.Verdicts.Overall.Malicious,
		Score:     result.Verdicts.Overall.Score,
		ResultURL: sub.Result,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, v interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: %s", ErrLookupFailed, method, endpoint, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return nil
}

//Findings converts a verdict into findings: one high url_reputation finding when malicious, none otherwise
func Findings(v Verdict) []diagnostics.Finding {
	if !v.Malicious {
		return nil
	}
	msg := fmt.Sprintf("URL %s is flagged as malicious by the reputation service (score %d)", v.URL, v.Score)
	if v.ResultURL != "" {
		msg += ", see " + v.ResultURL
	}
	return []diagnostics.Finding{diagnostics.NewFinding(diagnostics.URLReputation, diagnostics.High, "", 0, msg)}
}
