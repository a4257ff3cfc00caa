package ocr

import (
	"net/http"
	"time"
)

// keyTransport appends the API key as the "key" query parameter. A custom
// HTTP client replaces the one option.WithAPIKey would have built, so the
// key has to be added here instead.
type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

func newKeyedClient(apiKey string, timeout time.Duration) *http.Client {
	c := newHTTPClient(timeout)
	c.Transport = &keyTransport{key: apiKey, base: c.Transport}
	return c
}
