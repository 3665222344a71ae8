package openai

import (
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultTimeoutMin  = 5
	defaultConcurrency = 4
)

// Client embeds documents through an OpenAI-compatible embeddings
// endpoint.
//
// A Client should be created using New.
type Client struct {
	model      string
	timeoutMin int

	reqLock *semaphore.Weighted

	api *openai.Client
}

// Params defines the configuration parameters for creating a new
// Client.
//
// Model specifies the embedding model. URL and Key configure the API
// endpoint; an empty URL keeps the default OpenAI endpoint.
type Params struct {
	Model string
	URL   string
	Key   string

	TimeoutMin            int
	MaxConcurrentRequests int64
}

// New creates and returns a new Client configured with the provided
// parameters.
//
// Example:
//
//	client := openai.New(openai.Params{
//		Model: "text-embedding-3-small",
//		Key:   os.Getenv("EMBED_KEY"),
//	})
func New(params Params) *Client {
	if params.TimeoutMin < 1 {
		params.TimeoutMin = defaultTimeoutMin
	}
	if params.MaxConcurrentRequests < 1 {
		params.MaxConcurrentRequests = defaultConcurrency
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.Key),
	}
	if params.URL != "" {
		options = append(options, option.WithBaseURL(params.URL))
	}
	api := openai.NewClient(options...)

	return &Client{
		model:      params.Model,
		timeoutMin: params.TimeoutMin,
		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		api:        &api,
	}
}
