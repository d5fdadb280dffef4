package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type recordingSink struct {
	mu    sync.Mutex
	leads []Lead
	err   error
}

func (s *recordingSink) Deliver(_ context.Context, lead Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.leads = append(s.leads, lead)
	return nil
}

func postForm(h http.Handler, form url.Values, referer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"name":    {"  Ada Lovelace "},
		"email":   {"Ada@Example.com"},
		"company": {"Analytical"},
		"source":  {"about"},
	}
}

func TestHandler_FormAccepted(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(Config{Sink: sink})

	rec := postForm(h, validForm(), "http://example.com/about?x=1")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/about?lead=ok#contact" {
		t.Fatalf("Location = %q", loc)
	}
	if len(sink.leads) != 1 {
		t.Fatalf("delivered %d leads", len(sink.leads))
	}
	lead := sink.leads[0]
	if lead.Name != "Ada Lovelace" || lead.Email != "ada@example.com" || lead.Source != "about" {
		t.Fatalf("lead = %+v", lead)
	}
	if lead.ID == "" || lead.IP != "192.0.2.1" {
		t.Fatalf("lead ID/IP = %q/%q", lead.ID, lead.IP)
	}
}

func TestHandler_ForeignRefererRedirectsHome(t *testing.T) {
	rec := postForm(NewHandler(Config{Sink: &recordingSink{}}), validForm(), "https://evil.example/x")
	if loc := rec.Header().Get("Location"); loc != "/?lead=ok#contact" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestHandler_JSON(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(Config{Sink: sink})

	rec := postJSON(h, `{"name":"Grace","email":"grace@navy.mil","message":"hi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct{ ID string }
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" || resp.ID != sink.leads[0].ID {
		t.Fatalf("id = %q, lead = %q", resp.ID, sink.leads[0].ID)
	}
}

func TestHandler_Invalid(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(Config{Sink: sink})

	rec := postJSON(h, `{"name":"","email":"not-an-email"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Errors []ValidationError `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) != 2 || resp.Errors[0].Field != "name" || resp.Errors[1].Field != "email" {
		t.Fatalf("errors = %+v", resp.Errors)
	}
	if len(sink.leads) != 0 {
		t.Fatal("invalid lead delivered")
	}

	form := postForm(h, url.Values{"email": {"x"}}, "")
	if loc := form.Header().Get("Location"); loc != "/?lead=invalid#contact" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestHandler_BadBody(t *testing.T) {
	rec := postJSON(NewHandler(Config{}), `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandler_Honeypot(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(Config{Sink: sink})

	form := validForm()
	form.Set("website", "http://spam.example")
	rec := postForm(h, form, "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/?lead=ok#contact" {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(sink.leads) != 0 {
		t.Fatal("spam delivered")
	}
}

func TestHandler_RateLimited(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(Config{Sink: sink, Limiter: NewMemoryLimiter(2, time.Hour)})

	for i := 0; i < 2; i++ {
		if rec := postJSON(h, `{"name":"A","email":"a@b.co"}`); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := postJSON(h, `{"name":"A","email":"a@b.co"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if len(sink.leads) != 2 {
		t.Fatalf("delivered %d leads, want 2", len(sink.leads))
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestHandler_LimiterErrorAllows(t *testing.T) {
	sink := &recordingSink{}
	rec := postJSON(NewHandler(Config{Sink: sink, Limiter: brokenLimiter{}}), `{"name":"A","email":"a@b.co"}`)
	if rec.Code != http.StatusCreated || len(sink.leads) != 1 {
		t.Fatalf("status = %d, leads = %d", rec.Code, len(sink.leads))
	}
}

func TestHandler_SinkError(t *testing.T) {
	rec := postJSON(NewHandler(Config{Sink: &recordingSink{err: errors.New("crm down")}}), `{"name":"A","email":"a@b.co"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "crm down") {
		t.Fatal("internal error leaked")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		sub    Submission
		fields []string
	}{
		{"valid", Submission{Name: "A", Email: "a@b.co"}, nil},
		{"missing", Submission{}, []string{"name", "email"}},
		{"bad email", Submission{Name: "A", Email: "a@b"}, []string{"email"}},
		{"long name", Submission{Name: strings.Repeat("x", 201), Email: "a@b.co"}, []string{"name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sub)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidationErrors", err)
			}
			if len(verrs) != len(tt.fields) {
				t.Fatalf("errors = %v, want fields %v", verrs, tt.fields)
			}
			for i, f := range tt.fields {
				if verrs[i].Field != f {
					t.Errorf("errors[%d].Field = %q, want %q", i, verrs[i].Field, f)
				}
			}
		})
	}
}

func TestMemoryLimiter_Window(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(1, time.Hour)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "a"); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := l.Allow(ctx, "a"); ok {
		t.Fatal("second request allowed")
	}
	if ok, _ := l.Allow(ctx, "b"); !ok {
		t.Fatal("other key denied")
	}
	now = now.Add(time.Hour)
	if ok, _ := l.Allow(ctx, "a"); !ok {
		t.Fatal("new window denied")
	}
}

// fakeRedis runs the limiter script against in-memory counters.
type fakeRedis struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	scripts int
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.scripts++
	k := keys[0]
	f.counts[k]++
	if _, ok := f.ttls[k]; !ok {
		f.ttls[k] = time.Duration(args[0].(int64)) * time.Millisecond
	}
	return redis.NewCmdResult(f.counts[k], nil)
}

func TestRedisLimiter(t *testing.T) {
	fr := newFakeRedis()
	l := NewRedisLimiter(fr, 2, time.Hour)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "203.0.113.9")
		if err != nil || ok != want {
			t.Fatalf("request %d: ok=%v err=%v, want %v", i, ok, err, want)
		}
	}
	if fr.ttls["site:leads:203.0.113.9"] != time.Hour {
		t.Fatalf("ttls = %v", fr.ttls)
	}
	if fr.scripts != 3 {
		t.Fatalf("scripts = %d, want one round trip per request", fr.scripts)
	}

	fr.err = errors.New("conn refused")
	if _, err := l.Allow(ctx, "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisLimiter_KeyWithoutTTLGetsOne(t *testing.T) {
	fr := newFakeRedis()
	fr.counts["site:leads:198.51.100.4"] = 7
	l := NewRedisLimiter(fr, 2, 30*time.Minute)

	ok, err := l.Allow(context.Background(), "198.51.100.4")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want denied", ok, err)
	}
	if fr.ttls["site:leads:198.51.100.4"] != 30*time.Minute {
		t.Fatalf("ttls = %v, want the window set on the stuck key", fr.ttls)
	}
}

func TestWebhook_Deliver(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var ev struct {
			Type string `json:"type"`
			Lead Lead   `json:"lead"`
		}
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Type != "lead.created" || ev.Lead.ID != "lead-1" {
			t.Errorf("event = %+v, err = %v", ev, err)
		}
		if r.Header.Get("Idempotency-Key") != "lead-1" {
			t.Errorf("Idempotency-Key = %q", r.Header.Get("Idempotency-Key"))
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Deliver(context.Background(), Lead{ID: "lead-1"}); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond)).Deliver(context.Background(), Lead{ID: "x"})
	if err == nil || calls.Load() != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls.Load())
	}
}
