package leads

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/site/pkg/middleware"
)

// MaxBodyBytes bounds a submission body.
const MaxBodyBytes = 64 << 10

// Config configures a Handler.
type Config struct {
	// Limiter is consulted per client IP. Nil disables rate limiting.
	Limiter Limiter

	// Sink receives accepted leads. Default: LogSink.
	Sink Sink

	// RetryAfter is advertised on 429 responses. Default: 1h.
	RetryAfter time.Duration

	Logger *slog.Logger
}

// Handler serves POST /api/leads.
//
// HTML form posts are answered with a 303 back to the page they came from,
// with ?lead=ok, ?lead=invalid or ?lead=error appended. JSON requests get
// a JSON body instead.
type Handler struct {
	limiter    Limiter
	sink       Sink
	retryAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		limiter:    cfg.Limiter,
		sink:       cfg.Sink,
		retryAfter: cfg.RetryAfter,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.sink == nil {
		h.sink = LogSink{Logger: h.logger}
	}
	if h.retryAfter <= 0 {
		h.retryAfter = time.Hour
	}
	return h
}

type response struct {
	ID     string           `json:"id,omitempty"`
	Error  string           `json:"error,omitempty"`
	Errors ValidationErrors `json:"errors,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asJSON := isJSON(r)

	sub, err := decode(w, r, asJSON)
	if err != nil {
		middleware.RecordLead("bad_request")
		h.respond(w, r, asJSON, http.StatusBadRequest, "error", response{Error: "invalid request body"})
		return
	}

	// Bots get the success response and nothing is stored.
	if sub.IsSpam() {
		middleware.RecordLead("spam")
		h.respond(w, r, asJSON, http.StatusAccepted, "ok", response{})
		return
	}

	ip := clientIP(r)
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, ip)
		if err != nil {
			// Limiter failures let the submission through.
			h.logger.Warn("lead rate limiter failed", "error", err, "request_id", chimw.GetReqID(ctx))
		} else if !allowed {
			middleware.RecordLead("rate_limited")
			w.Header().Set("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
			h.respond(w, r, asJSON, http.StatusTooManyRequests, "limited", response{Error: "too many submissions"})
			return
		}
	}

	sub = sub.Normalize()
	if err := Validate(sub); err != nil {
		middleware.RecordLead("invalid")
		var verrs ValidationErrors
		errors.As(err, &verrs)
		h.respond(w, r, asJSON, http.StatusUnprocessableEntity, "invalid", response{Errors: verrs})
		return
	}

	lead := sub.Lead(ip, h.now())
	if err := h.sink.Deliver(ctx, lead); err != nil {
		middleware.RecordLead("error")
		h.logger.Error("lead delivery failed", "id", lead.ID, "error", err, "request_id", chimw.GetReqID(ctx))
		h.respond(w, r, asJSON, http.StatusBadGateway, "error", response{Error: "could not deliver the request, please try again"})
		return
	}

	middleware.RecordLead("accepted")
	h.logger.Info("lead accepted", "id", lead.ID, "source", lead.Source)
	h.respond(w, r, asJSON, http.StatusCreated, "ok", response{ID: lead.ID})
}

func decode(w http.ResponseWriter, r *http.Request, asJSON bool) (Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var sub Submission
	if asJSON {
		err := json.NewDecoder(r.Body).Decode(&sub)
		return sub, err
	}
	if err := r.ParseForm(); err != nil {
		return sub, err
	}
	sub = Submission{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Company: r.PostForm.Get("company"),
		Message: r.PostForm.Get("message"),
		Source:  r.PostForm.Get("source"),
		Website: r.PostForm.Get("website"),
	}
	return sub, nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, asJSON bool, status int, outcome string, body response) {
	if asJSON {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
		return
	}
	http.Redirect(w, r, backTo(r, outcome), http.StatusSeeOther)
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// backTo is the same-origin page the form was posted from, falling back to
// the home page, with the outcome in the query and the form as fragment.
func backTo(r *http.Request, outcome string) string {
	target := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && ref.Path != "" {
		target = ref.Path
	}
	return target + "?lead=" + outcome + "#contact"
}

// clientIP reads RemoteAddr. Behind a proxy, chi's RealIP middleware has
// already rewritten it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
