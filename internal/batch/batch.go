package batch

import (
	"context"
	"fmt"
	"time"

	"markethealth/internal/catalog"
	"markethealth/internal/components/assert"
	"markethealth/internal/components/chrono"
	"markethealth/internal/components/metrics"
	"markethealth/internal/components/telemetry"
	"markethealth/internal/publish"
	"markethealth/internal/runstore"
	"markethealth/internal/scrapers/chartink"
	"markethealth/internal/workbook"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("markethealth/internal/batch")

const (
	report_batch_query    = "batch.query"
	report_batch_workbook = "batch.workbook"
	report_batch_publish  = "batch.publish"
	report_batch_record   = "batch.record"
	report_batch_rows     = "batch.rows"
)

// Sessions opens screener sessions, implemented by *chartink.Client.
type Sessions interface {
	WithSession(ctx context.Context, fn func(s *chartink.Session) error) error
}

// Publisher uploads the written workbook, implemented by *publish.Publisher.
type Publisher interface {
	UploadFile(ctx context.Context, path string, now time.Time) (publish.Result, error)
}

// Store records finished batches, implemented by runstore.Store.
type Store interface {
	Record(ctx context.Context, run runstore.BatchRun) (int64, error)
}

type Options struct {
	Catalog      catalog.Catalog
	WorkbookPath string

	Sessions Sessions
	Time     chrono.TimeAPI
	// Publisher, Store and Metrics are optional.
	Publisher Publisher
	Store     Store
	Metrics   *metrics.Metrics
}

// Report is the outcome of one batch.
type Report struct {
	runstore.BatchRun
	Published *publish.Result
	Sheets    []workbook.Sheet
}

// Runner executes every query of the catalog on a single session.
type Runner struct {
	opts Options
	tel  telemetry.API
}

func NewRunner(opts Options, tel telemetry.API) Runner {
	assert.NotNil(opts.Sessions)
	assert.NotNil(opts.Time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.WorkbookPath)

	return Runner{
		opts: opts,
		tel:  telemetry.NewScopedAPI("batch", tel),
	}
}

// Run executes one batch. Only errors that abort the whole batch are
// returned: failing to open a session or ctx being cancelled before every
// query ran. Per-query failures are part of the report.
//
// A cancelled ctx is checked before each query, requests already in flight
// (session opening included) run to completion.
func (r Runner) Run(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "runner:Run")
	defer span.End()

	queries := r.opts.Catalog.Queries()
	report := Report{}
	report.StartedAt = r.opts.Time.Now()
	report.Total = len(queries)
	report.WorkbookPath = r.opts.WorkbookPath

	// requests in flight finish within their own timeout, ctx is checked
	// once the session is open and before each query
	err := r.opts.Sessions.WithSession(context.WithoutCancel(ctx), func(s *chartink.Session) error {
		for i, q := range queries {
			if ctx.Err() != nil {
				for _, skipped := range queries[i:] {
					report.Queries = append(report.Queries, runstore.QueryRun{
						Label:   skipped.Label,
						Outcome: runstore.OutcomeSkipped,
					})
				}
				return ctx.Err()
			}
			r.runQuery(ctx, s, q, &report)
		}
		return nil
	})
	if err != nil {
		return r.abort(ctx, report, err)
	}

	err = r.writeWorkbook(ctx, &report)
	if err != nil {
		return r.abort(ctx, report, err)
	}

	if report.Succeeded > 0 && r.opts.Publisher != nil {
		res, err := r.opts.Publisher.UploadFile(ctx, r.opts.WorkbookPath, r.opts.Time.Now())
		if err != nil {
			r.tel.ReportBroken(report_batch_publish, err)
		} else {
			report.Published = &res
			report.PublishedUrl = res.RawUrl
		}
	}

	r.finish(ctx, &report)
	span.SetAttributes(
		attribute.Int("succeeded", report.Succeeded),
		attribute.Int("no_data", report.NoData),
		attribute.Int("failed", report.Failed),
	)
	return report, nil
}

func (r Runner) runQuery(ctx context.Context, s *chartink.Session, q catalog.Query, report *Report) {
	start := time.Now()
	// a request that has started is allowed to finish within its own timeout
	result, err := s.Run(context.WithoutCancel(ctx), q.Query)

	run := runstore.QueryRun{
		Label:    q.Label,
		Duration: time.Since(start),
	}
	switch {
	case err != nil:
		run.Outcome = runstore.OutcomeFailed
		run.Error = err.Error()
		report.Failed++
		r.tel.ReportBroken(report_batch_query, fmt.Errorf("%s: %w", q.Label, err))
	case result.Len() == 0:
		run.Outcome = runstore.OutcomeNoData
		report.NoData++
		r.tel.ReportWarning(report_batch_query, fmt.Errorf("%s: no data", q.Label))
	default:
		run.Outcome = runstore.OutcomeSucceeded
		run.Rows = result.Len()
		report.Succeeded++
		report.Sheets = append(report.Sheets, workbook.Sheet{Query: q, Result: result})
		r.tel.ReportCount(report_batch_rows, int64(run.Rows))
	}
	report.Queries = append(report.Queries, run)

	if r.opts.Metrics != nil {
		r.opts.Metrics.Queries.WithLabelValues(q.Label, string(run.Outcome)).Inc()
		if run.Outcome == runstore.OutcomeSucceeded {
			r.opts.Metrics.Rows.WithLabelValues(q.Label).Set(float64(run.Rows))
		}
	}
}

func (r Runner) writeWorkbook(ctx context.Context, report *Report) error {
	_, span := tracer.Start(ctx, "runner:writeWorkbook")
	defer span.End()

	wb := workbook.Workbook{
		UpdatedAt:    r.opts.Time.Now().In(r.opts.Time.Location()),
		TotalQueries: report.Total,
		Sheets:       report.Sheets,
	}
	err := wb.Save(r.opts.WorkbookPath)
	if err != nil {
		r.tel.ReportBroken(report_batch_workbook, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write workbook")
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (r Runner) abort(ctx context.Context, report Report, err error) (Report, error) {
	report.Error = err.Error()
	report.WorkbookPath = ""
	report.Sheets = nil
	r.finish(ctx, &report)
	return report, err
}

func (r Runner) finish(ctx context.Context, report *Report) {
	report.FinishedAt = r.opts.Time.Now()

	if r.opts.Metrics != nil {
		outcome := "succeeded"
		if report.Error != "" {
			outcome = "failed"
		}
		r.opts.Metrics.Batches.WithLabelValues(outcome).Inc()
		r.opts.Metrics.BatchDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		if report.Published != nil {
			r.opts.Metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
		}
	}

	if r.opts.Store == nil {
		return
	}
	// the batch is over, a cancelled ctx must not prevent recording it
	_, err := r.opts.Store.Record(context.WithoutCancel(ctx), report.BatchRun)
	if err != nil {
		r.tel.ReportBroken(report_batch_record, err)
	}
}

// AllFailed is true when at least one query ran and none of them returned
// a response.
func (r Report) AllFailed() bool {
	return r.Total > 0 && r.Failed == r.Total
}
