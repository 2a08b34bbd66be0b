package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/config"
	"github.com/evanofslack/dynaflare/internal/metrics"
	"github.com/evanofslack/dynaflare/internal/provider"
)

const perPage = 100

type CloudflareProvider struct {
	client  *cloudflare.API
	metrics *metrics.Metrics
	log     logr.Logger
}

func New(cfg config.Cloudflare, log logr.Logger, metrics *metrics.Metrics) (*CloudflareProvider, error) {
	token := cfg.Token
	if token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	opts := []cloudflare.Option{
		cloudflare.HTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// retries are the watcher's business; one call is one request
		cloudflare.UsingRetryPolicy(0, 0, 0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, cloudflare.BaseURL(cfg.BaseURL))
	}

	client, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}

	return &CloudflareProvider{
		client:  client,
		metrics: metrics,
		log:     log,
	}, nil
}

func (p *CloudflareProvider) Records(ctx context.Context, zone string) ([]provider.Record, error) {
	p.log.V(1).Info("Getting DNS records", "zone", zone)
	start := time.Now()

	var all []cloudflare.DNSRecord
	page := 1
	for {
		query := url.Values{}
		query.Set("type", provider.RecordTypeA)
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))

		res, err := p.client.Raw(ctx, http.MethodGet, recordsPath(zone)+"?"+query.Encode(), nil, nil)
		if err != nil {
			p.metrics.IncDNSRequest("read", false)
			return nil, classify(err)
		}
		if err := responseErrors(res.Response); err != nil {
			p.metrics.IncDNSRequest("read", false)
			return nil, err
		}

		var records []cloudflare.DNSRecord
		if err := json.Unmarshal(res.Result, &records); err != nil {
			p.metrics.IncDNSRequest("read", false)
			return nil, fmt.Errorf("unexpected cloudflare response: %w", err)
		}
		all = append(all, records...)

		if res.ResultInfo == nil || page >= res.ResultInfo.TotalPages {
			break
		}
		page++
	}

	var result []provider.Record
	for _, r := range all {
		if r.Type != provider.RecordTypeA {
			continue
		}
		result = append(result, provider.Record{
			ID:      r.ID,
			Name:    r.Name,
			Type:    r.Type,
			Content: r.Content,
		})
	}

	p.metrics.IncDNSRequest("read", true)
	p.log.V(1).Info("Retrieved DNS records", "zone", zone, "count", len(result), "duration", time.Since(start))
	return result, nil
}

type batchPatch struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type batchPost struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

type batchRequest struct {
	Patches []batchPatch `json:"patches,omitempty"`
	Posts   []batchPost  `json:"posts,omitempty"`
}

type batchResult struct {
	Posts []struct {
		ID string `json:"id"`
	} `json:"posts"`
}

func (p *CloudflareProvider) SubmitBatch(ctx context.Context, zone string, batch provider.Batch) ([]string, error) {
	p.log.V(1).Info("Submitting DNS batch", "zone", zone, "patches", len(batch.Patches), "posts", len(batch.Posts))
	start := time.Now()
	defer func() {
		p.metrics.ObserveBatchDuration(time.Since(start))
	}()

	req := batchRequest{}
	for _, patch := range batch.Patches {
		req.Patches = append(req.Patches, batchPatch{ID: patch.ID, Type: provider.RecordTypeA, Content: patch.Content})
	}
	for _, post := range batch.Posts {
		req.Posts = append(req.Posts, batchPost{Type: provider.RecordTypeA, Name: post.Name, Content: post.Content, TTL: post.TTL})
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	res, err := p.client.Raw(ctx, http.MethodPost, recordsPath(zone)+"/batch", req, headers)
	if err != nil {
		p.metrics.IncDNSRequest("batch", false)
		return nil, err
	}
	if err := responseErrors(res.Response); err != nil {
		p.metrics.IncDNSRequest("batch", false)
		return nil, err
	}

	if len(batch.Posts) == 0 {
		p.metrics.IncDNSRequest("batch", true)
		return nil, nil
	}

	var result batchResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		p.metrics.IncDNSRequest("batch", false)
		return nil, fmt.Errorf("unexpected cloudflare response: %w", err)
	}
	if len(result.Posts) != len(batch.Posts) {
		p.metrics.IncDNSRequest("batch", false)
		return nil, fmt.Errorf("unexpected cloudflare response: %d records created, %d requested", len(result.Posts), len(batch.Posts))
	}

	ids := make([]string, 0, len(result.Posts))
	for _, post := range result.Posts {
		ids = append(ids, post.ID)
	}
	p.metrics.IncDNSRequest("batch", true)
	return ids, nil
}

func recordsPath(zone string) string {
	return "/zones/" + url.PathEscape(zone) + "/dns_records"
}

func responseErrors(res cloudflare.Response) error {
	if len(res.Errors) == 0 {
		return nil
	}
	batchErr := &provider.BatchError{}
	for _, e := range res.Errors {
		batchErr.Errors = append(batchErr.Errors, provider.APIError{Code: e.Code, Message: e.Message})
	}
	return batchErr
}

// classify maps record listing failures onto configuration errors.
func classify(err error) error {
	var (
		notFound   *cloudflare.NotFoundError
		badRequest *cloudflare.RequestError
		authn      *cloudflare.AuthenticationError
		authz      *cloudflare.AuthorizationError
	)
	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", provider.ErrInvalidZone, err)
	case errors.As(err, &badRequest), errors.As(err, &authn), errors.As(err, &authz):
		return fmt.Errorf("%w: %w", provider.ErrInvalidCredential, err)
	}
	return err
}
