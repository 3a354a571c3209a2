// client.go contains the fetcher for kworb track pages, it knows nothing about the markup.

package kworb

import (
	"context"
	"fmt"
	"net/url"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/assert"
	"spotify-charts/internal/components/chrono"
	"spotify-charts/internal/components/telemetry"
	"spotify-charts/lib/restyutil"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_client_fetch = "client.fetch"
)

const (
	DefaultBaseUrl   = "https://kworb.net/spotify/track"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultDelay     = 2 * time.Second
	DefaultTimeout   = 30 * time.Second
)

var tracer = otel.Tracer("spotify-charts/scrapers/kworb")

type ClientOptions struct {
	BaseUrl   string
	UserAgent string
	// Delay is waited after every request, successful or not. It cannot be turned off, a
	// zero delay means DefaultDelay.
	Delay   time.Duration
	Timeout time.Duration
	// CloudflareBypass wraps the transport so that requests carry browser-like TLS and
	// headers, kworb sometimes sits behind cloudflare.
	CloudflareBypass bool
	// DumpDir keeps a copy of every exchange in this directory when set.
	DumpDir string
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	o.BaseUrl = strings.TrimRight(o.BaseUrl, "/")
	return o
}

// Fetcher retrieves the raw page of a track.
type Fetcher interface {
	Fetch(ctx context.Context, trackID string, view chart.View) FetchResult
}

// FetchResult is the outcome of one request, a result with a non-nil Err carries no data.
type FetchResult struct {
	TrackID string
	View    chart.View
	Url     string
	Status  int
	Body    []byte
	Err     error
}

func (r FetchResult) OK() bool {
	return r.Err == nil
}

// Client fetches kworb track pages, one request per call, with a fixed delay after each.
type Client struct {
	opts ClientOptions
	http *resty.Client
	time chrono.API
	tel  telemetry.API
}

var _ Fetcher = (*Client)(nil)

func NewClient(opts ClientOptions, time chrono.API, tel telemetry.API) (*Client, error) {
	assert.NotNil(time)
	assert.NotNil(tel)

	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("kworb", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("kworb: parse base url: %w", err)
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("kworb: base url '%s' must be absolute", opts.BaseUrl)
	}

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel)
	if opts.DumpDir != "" {
		output, err := restyutil.NewDirOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("kworb: %w", err)
		}
		restyutil.Dump(httpClient, output)
	}

	return &Client{
		opts: opts,
		http: httpClient,
		time: time,
		tel:  tel,
	}, nil
}

// TrackUrl is the page address of a track, `{base_url}/{track_id}.html`.
func (c *Client) TrackUrl(trackID string) string {
	return fmt.Sprintf("%s/%s.html", c.opts.BaseUrl, url.PathEscape(trackID))
}

// Fetch performs a single GET for the track page. It never retries: a transport error or
// a non-2xx status comes back as a result with Err set, the caller decides what to do.
func (c *Client) Fetch(ctx context.Context, trackID string, view chart.View) FetchResult {
	result := FetchResult{TrackID: trackID, View: view}
	if strings.TrimSpace(trackID) == "" {
		result.Err = fmt.Errorf("kworb: empty track id")
		return result
	}
	result.Url = c.TrackUrl(trackID)

	ctx, span := tracer.Start(ctx, "kworb.fetch", trace.WithAttributes(
		attribute.String("track_id", trackID),
		attribute.String("view", view.String()),
	))
	defer span.End()

	c.tel.ReportDebug("fetch track page", trackID, view.String(), result.Url)

	res, err := c.http.R().
		SetContext(ctx).
		Get(result.Url)

	// the delay is mandatory regardless of the outcome, the request has already hit the server
	sleepErr := c.time.Sleep(ctx, c.opts.Delay)

	if err != nil {
		result.Err = fmt.Errorf("kworb: fetch %s: %w", trackID, err)
		c.tel.ReportWarning(report_client_fetch, result.Err, result.Url)
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "request failed")
		return result
	}

	result.Status = res.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", result.Status))
	if !res.IsSuccess() {
		result.Err = fmt.Errorf("kworb: fetch %s: unexpected status %d", trackID, result.Status)
		c.tel.ReportWarning(report_client_fetch, result.Err, result.Url)
		span.SetStatus(codes.Error, "non-success status")
		return result
	}

	result.Body = res.Body()
	if sleepErr != nil {
		c.tel.ReportDebug("politeness delay interrupted", trackID, sleepErr)
	}
	return result
}
