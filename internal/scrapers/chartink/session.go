package chartink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"markethealth/internal/components/telemetry"
	"markethealth/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// Session is a live web session with the screener, Token is only valid
// together with the cookies held by the session.
type Session struct {
	Token string
	// Referer is the final url of the screener page the token came from.
	Referer string

	origin string
	http   *resty.Client
	tel    telemetry.API
}

func (c *Client) endpoint(path string) string {
	return c.BaseUrl.JoinPath(path).String()
}

// OpenSession warms up a new cookie jar on the landing page, then fetches
// the screener page and pulls the csrf token out of its <meta> tag.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "client:OpenSession")
	defer span.End()

	httpClient, err := c.newHttpClient()
	if err != nil {
		span.SetStatus(codes.Error, "failed to create http client")
		return nil, err
	}

	res, err := httpClient.R().
		SetContext(ctx).
		Get(pathHome)
	if err != nil {
		fetchErr := &FetchError{Method: http.MethodGet, Url: c.endpoint(pathHome), Err: err}
		c.tel.ReportBroken(report_client_open_session, fmt.Errorf("warm-up: %w", err))
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "failed to fetch landing page")
		return nil, fetchErr
	}
	if !res.IsSuccess() {
		// only the cookies matter here, the screener request decides
		c.tel.ReportWarning(
			report_client_open_session,
			fmt.Errorf("warm-up returned %s", res.Status()),
		)
	}

	res, err = httpClient.R().
		SetContext(ctx).
		Get(pathScreener)
	if err != nil {
		fetchErr := &FetchError{Method: http.MethodGet, Url: c.endpoint(pathScreener), Err: err}
		c.tel.ReportBroken(report_client_open_session, fmt.Errorf("screener: %w", err))
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "failed to fetch screener page")
		return nil, fetchErr
	}
	if !res.IsSuccess() {
		fetchErr := &FetchError{
			Method: http.MethodGet,
			Url:    c.endpoint(pathScreener),
			Status: res.StatusCode(),
		}
		c.tel.ReportBroken(report_client_open_session, fetchErr)
		span.SetStatus(codes.Error, "screener page returned non-success status")
		return nil, fetchErr
	}

	screenerUrl := c.endpoint(pathScreener)
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		screenerUrl = res.RawResponse.Request.URL.String()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		notFound := &TokenNotFoundError{Url: screenerUrl, Err: err}
		c.tel.ReportBroken(report_client_open_session, notFound)
		span.SetStatus(codes.Error, "failed to parse screener page")
		return nil, notFound
	}
	token := htmlutil.MetaContent(doc, csrfMetaName)
	if token == "" {
		notFound := &TokenNotFoundError{Url: screenerUrl}
		c.tel.ReportBroken(report_client_open_session, notFound, htmlutil.Title(doc))
		span.SetStatus(codes.Error, "failed to find csrf token")
		return nil, notFound
	}

	c.tel.ReportDebug("session opened", screenerUrl)

	return &Session{
		Token:   token,
		Referer: screenerUrl,
		origin:  originOf(c.BaseUrl),
		http:    httpClient,
		tel:     c.tel,
	}, nil
}

func originOf(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

// Close releases the connections held by the session, the session must not
// be used afterwards.
func (s *Session) Close() {
	if s.http == nil {
		return
	}
	s.http.GetClient().CloseIdleConnections()
	s.http = nil
}
