// client.go contains the session protocol of the chartink screener: a session
// is a cookie jar plus the csrf token of the screener page it was issued with.

package chartink

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"time"

	"markethealth/internal/components/assert"
	"markethealth/internal/components/telemetry"
	"markethealth/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("markethealth/scrapers/chartink")

const (
	DefaultBaseUrl = "https://chartink.com"

	pathHome          = "/"
	pathScreener      = "/screener"
	pathWidgetProcess = "/widget/process"

	csrfMetaName   = "csrf-token"
	csrfHeaderName = "X-CSRF-TOKEN"
	queryFieldName = "query"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

const (
	report_client_open_session = "client.open-session"
	report_session_run         = "session.run"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout is applied to every request, defaults to 15 seconds.
	Timeout time.Duration
	// RequestsPerSecond paces requests across all sessions of the client,
	// defaults to 0.5. A negative value disables pacing.
	RequestsPerSecond float64
	// Burst defaults to 3 so a session can be opened and its first query
	// run without waiting.
	Burst int
	// DisableCloudflareBypass keeps the default transport.
	DisableCloudflareBypass bool
	// Output receives a dump of every http exchange when not nil.
	Output restyutil.InstrumentOutput
}

// Client opens sessions against the screener.
type Client struct {
	BaseUrl *url.URL

	opts    ClientOptions
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 15
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 0.5
	}
	if opts.Burst == 0 {
		opts.Burst = 3
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	limit := rate.Limit(opts.RequestsPerSecond)
	if opts.RequestsPerSecond < 0 {
		limit = rate.Inf
	}

	return &Client{
		BaseUrl: baseUrl,
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Burst),
		tel:     telemetry.NewScopedAPI("chartink", tel),
	}, nil
}

// newHttpClient creates a resty client with its own cookie jar, a token is
// only accepted together with the cookies of the client that fetched it.
func (c *Client) newHttpClient() (*resty.Client, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(c.opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if !c.opts.DisableCloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.BaseUrl.Hostname()))
	httpClient.SetTimeout(c.opts.Timeout)

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, c.tel)
	restyutil.InstrumentClient(httpClient, "chartink", c.opts.Output)

	return httpClient, nil
}

// WithSession opens a session, hands it to fn and closes it once fn returns,
// whatever fn returns.
func (c *Client) WithSession(ctx context.Context, fn func(s *Session) error) error {
	session, err := c.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}
