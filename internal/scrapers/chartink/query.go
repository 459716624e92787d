package chartink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var errSessionClosed = errors.New("chartink: session is closed")

// Process posts a screener query to the widget endpoint and returns the raw
// json body.
func (s *Session) Process(ctx context.Context, query string) ([]byte, error) {
	if s.http == nil {
		return nil, errSessionClosed
	}

	form := url.Values{queryFieldName: {query}}
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader(csrfHeaderName, s.Token).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Accept", "application/json").
		SetHeader("Origin", s.origin).
		SetHeader("Referer", s.Referer).
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetBody(form.Encode()).
		Post(pathWidgetProcess)
	if err != nil {
		return nil, &FetchError{Method: http.MethodPost, Url: s.origin + pathWidgetProcess, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &FetchError{
			Method: http.MethodPost,
			Url:    s.origin + pathWidgetProcess,
			Status: res.StatusCode(),
		}
	}
	return res.Body(), nil
}

// Run executes a query and shapes its response, a nil *ResultSet with a nil
// error means the screener returned no data for the query.
func (s *Session) Run(ctx context.Context, query string) (*ResultSet, error) {
	ctx, span := tracer.Start(ctx, "session:Run")
	defer span.End()

	body, err := s.Process(ctx, query)
	if err != nil {
		s.tel.ReportBroken(report_session_run, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to process query")
		return nil, err
	}

	result, err := Shape(body)
	if err != nil {
		s.tel.ReportBroken(report_session_run, err, len(body))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to shape response")
		return nil, err
	}
	if result == nil {
		s.tel.ReportWarning(report_session_run, fmt.Errorf("no groupData in response"))
		span.SetAttributes(attribute.Bool("no_data", true))
		return nil, nil
	}

	span.SetAttributes(attribute.Int("rows", result.Len()))
	return result, nil
}
