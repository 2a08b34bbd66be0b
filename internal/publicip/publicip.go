// Package publicip looks up the address this machine is seen from on the
// internet, using a web service that answers with {"ip": "..."}.
package publicip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/config"
	"github.com/evanofslack/dynaflare/internal/metrics"
)

type Resolver struct {
	url        string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        logr.Logger
}

func New(cfg config.PublicIP, log logr.Logger, metrics *metrics.Metrics) *Resolver {
	return &Resolver{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    metrics,
		log:        log,
	}
}

// PublicIP returns the current public IPv4 address.
func (r *Resolver) PublicIP(ctx context.Context) (string, error) {
	r.log.V(1).Info("Retrieving public IP", "url", r.url)
	start := time.Now()

	ip, err := r.lookup(ctx)
	r.metrics.IncIPLookup(err == nil)
	if err != nil {
		return "", err
	}
	r.log.V(1).Info("Retrieved public IP", "ip", ip, "duration", time.Since(start))
	return ip, nil
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http request returned %s", resp.Status)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("unexpected ip lookup response: %w", err)
	}

	addr, err := netip.ParseAddr(body.IP)
	if err != nil {
		return "", fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	if !addr.Is4() {
		return "", fmt.Errorf("lookup returned %s, an address record needs IPv4", addr)
	}
	return addr.String(), nil
}
