package ollama

import (
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeoutMin  = 5
	defaultConcurrency = 4
)

// Client embeds documents through a locally hosted Ollama server.
type Client struct {
	model      string
	timeoutMin int

	reqLock *semaphore.Weighted

	client *api.Client
}

// Params contains configuration options for creating a new Client.
type Params struct {
	Model string
	URL   string
	Key   string

	TimeoutMin            int
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// New creates a new Ollama-based embedding client. It connects to the
// Ollama server at the given URL (or the default local server if
// empty) and uses the configured model for embeddings.
func New(params Params) (*Client, error) {
	if params.TimeoutMin < 1 {
		params.TimeoutMin = defaultTimeoutMin
	}
	if params.MaxConcurrentRequests < 1 {
		params.MaxConcurrentRequests = defaultConcurrency
	}

	u := &url.URL{Scheme: "http", Host: "127.0.0.1:11434"}
	if params.URL != "" {
		parsed, err := url.Parse(params.URL)
		if err != nil {
			return nil, err
		}
		u = parsed
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.Key,
			},
			rt: http.DefaultTransport,
		},
	}

	return &Client{
		model:      params.Model,
		timeoutMin: params.TimeoutMin,
		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		client:     api.NewClient(u, httpClient),
	}, nil
}
