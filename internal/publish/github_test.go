package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"markethealth/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeContents struct {
	mutex       sync.Mutex
	sha         string
	lookupCode  int
	putCode     int
	auth        []string
	refs        []string
	puts        []putRequest
	putsAllowed bool
}

func (f *fakeContents) handler(t testing.TB) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/data/contents/market/health.xlsx", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()

		f.auth = append(f.auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			f.refs = append(f.refs, r.URL.Query().Get("ref"))
			if f.lookupCode != 0 {
				w.WriteHeader(f.lookupCode)
				w.Write([]byte(`{"message": "boom"}`))
				return
			}
			if f.sha == "" {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message": "Not Found"}`))
				return
			}
			json.NewEncoder(w).Encode(contentsResponse{Sha: f.sha})
		case http.MethodPut:
			var req putRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.puts = append(f.puts, req)
			if f.putCode != 0 {
				w.WriteHeader(f.putCode)
				w.Write([]byte(`{"message": "conflict"}`))
				return
			}
			status := http.StatusOK
			if f.sha == "" {
				status = http.StatusCreated
			}
			f.sha = "sha-" + req.Message
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(putResponse{Content: contentsResponse{Sha: f.sha}})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestPublisher(t testing.TB, apiUrl string) (*Publisher, *telemetry.Recorder) {
	tel := &telemetry.Recorder{}
	p, err := NewGithub(Options{
		ApiUrl: apiUrl,
		Token:  "secret",
		Repo:   "owner/data",
		Branch: "main",
		Path:   "market/health.xlsx",
	}, tel)
	require.NoError(t, err)
	return p, tel
}

var now = time.Date(2024, time.October, 1, 14, 5, 0, 0, time.UTC)

func TestUploadCreatesThenUpdates(t *testing.T) {
	fake := &fakeContents{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	p, _ := newTestPublisher(t, server.URL)

	res, err := p.Upload(context.Background(), []byte("first"), now)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, "https://raw.githubusercontent.com/owner/data/main/market/health.xlsx", res.RawUrl)
	require.Equal(t, "sha-Update data: 2024-10-01 14:05", res.Sha)

	res, err = p.Upload(context.Background(), []byte("second"), now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, res.Created)

	require.Len(t, fake.puts, 2)
	first := fake.puts[0]
	require.Equal(t, "Update data: 2024-10-01 14:05", first.Message)
	require.Equal(t, "main", first.Branch)
	require.Empty(t, first.Sha)
	decoded, err := base64.StdEncoding.DecodeString(first.Content)
	require.NoError(t, err)
	require.Equal(t, "first", string(decoded))

	require.Equal(t, "sha-Update data: 2024-10-01 14:05", fake.puts[1].Sha)
	require.Equal(t, []string{"main", "main"}, fake.refs)
	for _, auth := range fake.auth {
		require.Equal(t, "token secret", auth)
	}
}

func TestUploadLookupFailure(t *testing.T) {
	fake := &fakeContents{lookupCode: http.StatusInternalServerError}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	p, tel := newTestPublisher(t, server.URL)

	_, err := p.Upload(context.Background(), []byte("x"), now)
	var ghErr *Error
	require.True(t, errors.As(err, &ghErr))
	require.Equal(t, "lookup", ghErr.Op)
	require.Equal(t, http.StatusInternalServerError, ghErr.Status)
	require.Empty(t, fake.puts, "no upload without a successful lookup")
	require.NotEmpty(t, tel.Find("broken", report_publish_lookup))
}

func TestUploadPutFailure(t *testing.T) {
	fake := &fakeContents{sha: "abc", putCode: http.StatusConflict}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	p, tel := newTestPublisher(t, server.URL)

	_, err := p.Upload(context.Background(), []byte("x"), now)
	var ghErr *Error
	require.True(t, errors.As(err, &ghErr))
	require.Equal(t, "put", ghErr.Op)
	require.Equal(t, http.StatusConflict, ghErr.Status)
	require.NotEmpty(t, tel.Find("broken", report_publish_put))
}

func TestNewGithubValidation(t *testing.T) {
	_, err := NewGithub(Options{Repo: "owner/data", Path: "x"}, &telemetry.Recorder{})
	require.Error(t, err)
	_, err = NewGithub(Options{Token: "t", Repo: "data", Path: "x"}, &telemetry.Recorder{})
	require.Error(t, err)
	_, err = NewGithub(Options{Token: "t", Repo: "owner/data"}, &telemetry.Recorder{})
	require.Error(t, err)
}
