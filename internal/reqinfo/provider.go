package reqinfo

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Provider yields the RequestInfo for the current render.
// The composition root picks the implementation: ServerProvider in the
// HTTP handler, BrowserProvider in the client build.
type Provider interface {
	RequestInfo() (RequestInfo, error)
}

// ServerProvider derives RequestInfo from an incoming request.
type ServerProvider struct {
	Request *http.Request

	// TrustProxy makes Forwarded / X-Forwarded-* headers authoritative for
	// scheme and host. Only enable behind a proxy that sets them.
	TrustProxy bool
}

// RequestInfo implements Provider.
func (p ServerProvider) RequestInfo() (RequestInfo, error) {
	return FromURL(RequestURL(p.Request, p.TrustProxy)), nil
}

// RequestURL reconstructs the absolute URL the client asked for. Forwarded
// values that are not a plain http(s) scheme or a valid host are ignored,
// since the origin is written into pages.
func RequestURL(r *http.Request, trustProxy bool) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if trustProxy {
		fwd := parseForwarded(r.Header.Get("Forwarded"))
		proto := fwd["proto"]
		if proto == "" {
			proto = strings.ToLower(firstValue(r.Header.Get("X-Forwarded-Proto")))
		}
		if proto == "http" || proto == "https" {
			scheme = proto
		}
		h := fwd["host"]
		if h == "" {
			h = firstValue(r.Header.Get("X-Forwarded-Host"))
		}
		if validHost(h) {
			host = h
		}
	}

	u := *r.URL
	u.Scheme = scheme
	u.Host = host
	u.Fragment = ""
	return &u
}

// BrowserProvider derives RequestInfo from the browser's location.href.
type BrowserProvider struct {
	Href func() string
}

// RequestInfo implements Provider.
func (p BrowserProvider) RequestInfo() (RequestInfo, error) {
	return Parse(p.Href())
}

// OriginOf returns scheme://host for a request.
func OriginOf(r *http.Request, trustProxy bool) string {
	u := RequestURL(r, trustProxy)
	return u.Scheme + "://" + u.Host
}

// parseForwarded reads the first element of an RFC 7239 Forwarded header.
func parseForwarded(header string) map[string]string {
	first, _, _ := strings.Cut(header, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return nil
	}
	out := make(map[string]string)
	for _, param := range strings.Split(first, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "proto" {
			v = strings.ToLower(v)
		}
		out[k] = v
	}
	return out
}

// validHost reports whether h is a Host header value that needs no escaping
// in HTML or JSON.
func validHost(h string) bool {
	return h != "" && httpguts.ValidHostHeader(h) && !strings.ContainsAny(h, "&'")
}

func firstValue(header string) string {
	v, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(v)
}
