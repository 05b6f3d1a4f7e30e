package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	DefaultGenerativeModel = "gemini-2.5-flash"
	DefaultImageModel      = "imagen-3.0-generate-002"
)

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	imageModel      string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.generativeModel = model
		}
	}
}

func WithImageModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.imageModel = model
		}
	}
}

// NewGemini creates a Gemini Developer API client authenticated by apiKey
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, goerr.New("gemini api key is required")
	}

	return newGemini(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, opts...)
}

// NewVertexGemini creates a Gemini client on Vertex AI using application default credentials
func NewVertexGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	return newGemini(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}, opts...)
}

func newGemini(ctx context.Context, cfg *genai.ClientConfig, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: DefaultGenerativeModel,
		imageModel:      DefaultImageModel,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}
	return resp, nil
}

func (g *GeminiClient) GenerateImages(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate images", goerr.V("model", g.imageModel))
	}
	return resp, nil
}
