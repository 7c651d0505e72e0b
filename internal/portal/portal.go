// Package portal issues the requests for a single parameter combination
// against the grievance portal.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/lib/restyutil"
	"bbmp-grievances/lib/telemetry"
	"bbmp-grievances/lib/timezone"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("internal/portal")

var (
	ErrRequestFailed     = errors.New("portal request failed")
	ErrUnsupportedMethod = errors.New("request method must be GET or POST")
)

// RawResponse is the unmodified result of one request.
type RawResponse struct {
	Params     paramspace.Params
	FetchedAt  time.Time
	StatusCode int
	Body       []byte
}

func (r RawResponse) Key() string {
	return r.Params.Key()
}

type Client struct {
	Http  *resty.Client
	opts  Options
	clock timezone.TimeAPI
}

func (o Options) Validate() error {
	switch strings.ToUpper(o.Method) {
	case "GET", "POST":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, o.Method)
	}
	link, err := url.Parse(o.BaseUrl)
	if err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return fmt.Errorf("base url: unsupported scheme %q", link.Scheme)
	}
	return nil
}

// NewClient creates a client, `clock` may be nil in which case the standard
// clock is used.
func NewClient(opts Options, clock timezone.TimeAPI) (*Client, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timezone.StandardTime{}
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.Cloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetHeaders(opts.Headers)
	if opts.TimeoutSeconds > 0 {
		client.SetTimeout(opts.timeout())
	}

	client.SetRetryCount(max(opts.RetryCount, 0))
	client.SetRetryWaitTime(opts.retryWait())
	client.SetRetryMaxWaitTime(opts.retryMaxWait())
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res == nil || !res.IsSuccess()
	})

	// the limiter runs before every attempt, retries included
	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, "internal/portal/http")

	if opts.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.DumpExchanges(client, output)
	}

	return &Client{Http: client, opts: opts, clock: clock}, nil
}

// Fetch requests a single combination. Responses that are not 2xx after
// every retry come back alongside an error wrapping ErrRequestFailed.
func (c *Client) Fetch(ctx context.Context, params paramspace.Params) (RawResponse, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("key", params.Key()))

	values := params.Map()
	path, err := Expand(c.opts.Path, values)
	if err != nil {
		return RawResponse{}, err
	}
	query, err := expandAll(c.opts.Query, values)
	if err != nil {
		return RawResponse{}, err
	}
	form, err := expandAll(c.opts.Form, values)
	if err != nil {
		return RawResponse{}, err
	}

	req := c.Http.R().
		SetContext(ctx).
		SetQueryParams(query)
	if len(form) > 0 {
		req.SetFormData(form)
	}

	res, err := req.Execute(strings.ToUpper(c.opts.Method), path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return RawResponse{}, fmt.Errorf("%w: %s: %w", ErrRequestFailed, params, err)
	}

	out := RawResponse{
		Params:     params,
		FetchedAt:  c.clock.Now(),
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
	}
	span.SetAttributes(attribute.Int("status", out.StatusCode))
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
		return out, fmt.Errorf("%w: %s: status %d", ErrRequestFailed, params, out.StatusCode)
	}
	return out, nil
}
