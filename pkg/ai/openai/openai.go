package openai

import (
	"sync"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CaseOpenAIClient implements ai.CaseAIClient against an OpenAI-compatible
// chat completion endpoint. Separate models are configurable for
// extraction (schema-constrained calls) and prose generation
// (summaries, narratives).
//
// A CaseOpenAIClient should be created using NewCaseOpenAIClient.
type CaseOpenAIClient struct {
	completionModel string
	extractionModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewCaseOpenAIClientParams defines the configuration parameters for
// creating a new CaseOpenAIClient.
type NewCaseOpenAIClientParams struct {
	CompletionModel string
	ExtractionModel string

	ChatURL string
	ChatKey string
}

// NewCaseOpenAIClient creates a new client for the configured endpoint.
//
// Example:
//
//	client := openai.NewCaseOpenAIClient(openai.NewCaseOpenAIClientParams{
//		CompletionModel: "gpt-4o-mini",
//		ExtractionModel: "gpt-4o-mini",
//		ChatKey:         os.Getenv("OPENAI_API_KEY"),
//	})
func NewCaseOpenAIClient(
	params NewCaseOpenAIClientParams,
) *CaseOpenAIClient {
	return &CaseOpenAIClient{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
