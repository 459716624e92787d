package publish

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"markethealth/internal/components/telemetry"
	"markethealth/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("markethealth/internal/publish")

const (
	DefaultApiUrl = "https://api.github.com"
	rawBaseUrl    = "https://raw.githubusercontent.com"

	CommitTimeLayout = "2006-01-02 15:04"
)

const (
	report_publish_lookup = "publish.lookup"
	report_publish_put    = "publish.put"
)

type Options struct {
	// ApiUrl defaults to DefaultApiUrl.
	ApiUrl string
	Token  string
	// Repo is "owner/name".
	Repo   string
	Branch string
	// Path is the destination path inside the repository.
	Path    string
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

// Result describes a successful upload.
type Result struct {
	RawUrl string
	Sha    string
	// Created is true when no prior file existed.
	Created bool
}

// Error is returned for any unexpected response from the contents api.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("github %s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Publisher uploads files through the GitHub repository contents api.
type Publisher struct {
	opts Options
	http *resty.Client
	tel  telemetry.API
}

func NewGithub(opts Options, tel telemetry.API) (*Publisher, error) {
	if opts.Token == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github publisher requires a token and a repo")
	}
	if !strings.Contains(opts.Repo, "/") {
		return nil, fmt.Errorf("github repo %q must be of the form owner/name", opts.Repo)
	}
	if opts.ApiUrl == "" {
		opts.ApiUrl = DefaultApiUrl
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("github publisher requires a destination path")
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.ApiUrl, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetAuthScheme("token")
	client.SetAuthToken(opts.Token)
	client.SetHeader("Accept", "application/vnd.github+json")
	client.SetHeader("X-GitHub-Api-Version", "2022-11-28")

	tel = telemetry.NewScopedAPI("publish", tel)
	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, "github", opts.Output)

	return &Publisher{opts: opts, http: client, tel: tel}, nil
}

// RawUrl is the public url of the destination file.
func (p *Publisher) RawUrl() string {
	return fmt.Sprintf("%s/%s/%s/%s", rawBaseUrl, p.opts.Repo, p.opts.Branch, p.opts.Path)
}

func (p *Publisher) contentsPath() string {
	return fmt.Sprintf("/repos/%s/contents/%s", p.opts.Repo, p.opts.Path)
}

type contentsResponse struct {
	Sha string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	Sha     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content contentsResponse `json:"content"`
}

// currentSha returns the sha of the existing destination file, or "" when
// there is none.
func (p *Publisher) currentSha(ctx context.Context) (string, error) {
	var body contentsResponse
	res, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("ref", p.opts.Branch).
		SetResult(&body).
		Get(p.contentsPath())
	if err != nil {
		return "", &Error{Op: "lookup", Err: err}
	}
	switch res.StatusCode() {
	case http.StatusOK:
		return body.Sha, nil
	case http.StatusNotFound:
		return "", nil
	}
	return "", &Error{Op: "lookup", Status: res.StatusCode(), Body: res.String()}
}

// Upload replaces the destination file with content, creating it if needed.
func (p *Publisher) Upload(ctx context.Context, content []byte, now time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "publisher:Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("repo", p.opts.Repo),
		attribute.String("path", p.opts.Path),
	)

	sha, err := p.currentSha(ctx)
	if err != nil {
		p.tel.ReportBroken(report_publish_lookup, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up existing file")
		return Result{}, err
	}

	var body putResponse
	res, err := p.http.R().
		SetContext(ctx).
		SetBody(putRequest{
			Message: "Update data: " + now.Format(CommitTimeLayout),
			Content: base64.StdEncoding.EncodeToString(content),
			Branch:  p.opts.Branch,
			Sha:     sha,
		}).
		SetResult(&body).
		Put(p.contentsPath())
	if err != nil {
		err = &Error{Op: "put", Err: err}
		p.tel.ReportBroken(report_publish_put, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload file")
		return Result{}, err
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		err = &Error{Op: "put", Status: res.StatusCode(), Body: res.String()}
		p.tel.ReportBroken(report_publish_put, err)
		span.SetStatus(codes.Error, "upload returned non-success status")
		return Result{}, err
	}

	return Result{
		RawUrl:  p.RawUrl(),
		Sha:     body.Content.Sha,
		Created: sha == "",
	}, nil
}

// UploadFile reads a file from disk and uploads it.
func (p *Publisher) UploadFile(ctx context.Context, path string, now time.Time) (Result, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Result{}, err
	}
	return p.Upload(ctx, content, now)
}
