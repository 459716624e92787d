// Package chartinktest provides an in-process fake of the screener for tests.
package chartinktest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const sessionCookie = "ci_session"

// Response is what the fake answers to a query.
type Response struct {
	Status int
	Body   string
}

// Server is a fake screener. It issues a cookie on the landing page, a
// token bound to that cookie on the screener page, and rejects queries
// whose token does not belong to the cookie they came with.
type Server struct {
	*httptest.Server

	mutex sync.Mutex
	// Responses maps a query string to its response, unknown queries get
	// {"groupData": []}.
	Responses map[string]Response
	// ScreenerStatus overrides the status of the screener page.
	ScreenerStatus int
	// OmitToken removes the csrf meta tag from the screener page.
	OmitToken bool
	// OnScreener is called while the screener page is being served.
	OnScreener func()

	nextSession int
	tokens      map[string]string

	HomeHits     int
	ScreenerHits int
	ProcessHits  int
	// Queries are the query strings received, in order.
	Queries []string
	// Headers are the headers of every accepted process request.
	Headers []http.Header
}

func NewServer() *Server {
	s := &Server{
		Responses: map[string]Response{},
		tokens:    map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.home)
	mux.HandleFunc("/screener", s.screener)
	mux.HandleFunc("/widget/process", s.process)
	s.Server = httptest.NewServer(mux)
	return s
}

// Respond registers the response for a query.
func (s *Server) Respond(query string, status int, body string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Responses[query] = Response{Status: status, Body: body}
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.HomeHits++
	s.nextSession++
	http.SetCookie(w, &http.Cookie{
		Name:  sessionCookie,
		Value: fmt.Sprintf("session-%d", s.nextSession),
		Path:  "/",
	})
	fmt.Fprint(w, "<html><head><title>Home</title></head></html>")
}

func (s *Server) screener(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ScreenerHits++
	if s.OnScreener != nil {
		s.OnScreener()
	}
	if s.ScreenerStatus != 0 {
		w.WriteHeader(s.ScreenerStatus)
		fmt.Fprint(w, "<html><head><title>Unavailable</title></head></html>")
		return
	}

	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}

	meta := ""
	if !s.OmitToken {
		token := "token-for-" + cookie.Value
		s.tokens[cookie.Value] = token
		meta = fmt.Sprintf(`<meta name="csrf-token" content="%s">`, token)
	}
	fmt.Fprintf(w, `<html><head><title>Screener</title>%s</head><body></body></html>`, meta)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ProcessHits++
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}
	expected, ok := s.tokens[cookie.Value]
	if !ok || r.Header.Get("X-CSRF-TOKEN") != expected {
		http.Error(w, "csrf token mismatch", 419)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Error(w, "bad content type", http.StatusBadRequest)
		return
	}
	err = r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.PostForm.Get("query")
	s.Queries = append(s.Queries, query)
	s.Headers = append(s.Headers, r.Header.Clone())

	res, ok := s.Responses[query]
	if !ok {
		res = Response{Status: http.StatusOK, Body: `{"groupData": []}`}
	}
	if res.Status == 0 {
		res.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	fmt.Fprint(w, res.Body)
}

// Stats returns the hit counters under lock.
func (s *Server) Stats() (home, screener, process int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.HomeHits, s.ScreenerHits, s.ProcessHits
}
