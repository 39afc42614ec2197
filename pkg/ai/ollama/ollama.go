package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// CaseOllamaClient implements ai.CaseAIClient using a locally-hosted
// Ollama server. Concurrent requests are capped with a weighted semaphore
// so a small local model is not overloaded by parallel document workers.
type CaseOllamaClient struct {
	completionModel string
	extractionModel string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewCaseOllamaClientParams contains configuration options for creating a
// new CaseOllamaClient.
type NewCaseOllamaClientParams struct {
	CompletionModel string
	ExtractionModel string

	BaseURL string
	ApiKey  string

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
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewCaseOllamaClient creates a new Ollama-backed AI client. It connects
// to the server at BaseURL (or the Ollama default when empty).
func NewCaseOllamaClient(
	params NewCaseOllamaClientParams,
) (*CaseOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &CaseOllamaClient{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
