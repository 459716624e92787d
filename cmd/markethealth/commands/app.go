package commands

import (
	"fmt"
	"path/filepath"

	"markethealth/internal/batch"
	"markethealth/internal/catalog"
	"markethealth/internal/components/chrono"
	"markethealth/internal/components/metrics"
	"markethealth/internal/components/telemetry"
	"markethealth/internal/config"
	"markethealth/internal/publish"
	"markethealth/internal/runstore"
	"markethealth/internal/scrapers/chartink"
	"markethealth/lib/restyutil"
)

// app holds every long lived dependency built from the config.
type app struct {
	cfg       config.Config
	time      chrono.StandardTime
	tel       telemetry.API
	client    *chartink.Client
	publisher *publish.Publisher
	store     runstore.Store
	metrics   *metrics.Metrics
}

func restyOutput(name string) (restyutil.InstrumentOutput, error) {
	if !verbose {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(".dev", "resty", name))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func newApp(cfg config.Config) (*app, error) {
	tel := telemetry.SlogAPI{}

	timeAPI, err := chrono.NewStandardTime(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	chartinkOutput, err := restyOutput("chartink")
	if err != nil {
		return nil, err
	}
	client, err := chartink.NewClient(chartink.ClientOptions{
		BaseUrl:           cfg.Chartink.BaseUrl,
		Timeout:           cfg.Chartink.Timeout(),
		RequestsPerSecond: cfg.Chartink.RequestsPerSecond,
		Output:            chartinkOutput,
	}, tel)
	if err != nil {
		return nil, fmt.Errorf("create chartink client: %w", err)
	}

	var publisher *publish.Publisher
	if cfg.Github.Enabled() {
		githubOutput, err := restyOutput("github")
		if err != nil {
			return nil, err
		}
		publisher, err = publish.NewGithub(publish.Options{
			ApiUrl: cfg.Github.ApiUrl,
			Token:  cfg.Github.Token,
			Repo:   cfg.Github.Repo,
			Branch: cfg.Github.Branch,
			Path:   cfg.Github.Path,
			Output: githubOutput,
		}, tel)
		if err != nil {
			return nil, fmt.Errorf("create github publisher: %w", err)
		}
	}

	store, err := runstore.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		time:      timeAPI,
		tel:       tel,
		client:    client,
		publisher: publisher,
		store:     store,
		metrics:   metrics.New(),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// runner builds a batch runner over `cat`, publishing only when asked to
// and a publisher is configured.
func (a *app) runner(cat catalog.Catalog, upload bool) batch.Runner {
	opts := batch.Options{
		Catalog:      cat,
		WorkbookPath: a.cfg.Workbook.Path,
		Sessions:     a.client,
		Time:         a.time,
		Store:        a.store,
		Metrics:      a.metrics,
	}
	if upload && a.publisher != nil {
		opts.Publisher = a.publisher
	}
	return batch.NewRunner(opts, a.tel)
}

func (a *app) gate() (chrono.Gate, error) {
	if a.cfg.Schedule.IgnoreMarketHours {
		return chrono.AlwaysOpen{}, nil
	}
	return chrono.NewMarketCalendar(chrono.MarketCalendarOptions{
		Location: a.time.Location(),
		Open:     a.cfg.Schedule.Open,
		Close:    a.cfg.Schedule.Close,
		Holidays: a.cfg.Schedule.Holidays,
	})
}
