package article_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/repository"
	"github.com/m-mizutani/newsdesk/pkg/usecase/article"
	"google.golang.org/genai"
)

// mockGemini is a mock implementation of adapter.Gemini for testing
type mockGemini struct {
	generateContentFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	generateImagesFunc  func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)

	contentCalls int
	imageCalls   int
	lastPrompt   string
	lastConfig   *genai.GenerateContentConfig
	imagePrompt  string
	imageConfig  *genai.GenerateImagesConfig
}

var _ adapter.Gemini = (*mockGemini)(nil)

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.contentCalls++
	m.lastConfig = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		m.lastPrompt = contents[0].Parts[0].Text
	}
	return m.generateContentFunc(ctx, contents, config)
}

func (m *mockGemini) GenerateImages(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	m.imageCalls++
	m.imagePrompt = prompt
	m.imageConfig = config
	if m.generateImagesFunc == nil {
		return nil, errors.New("image generation is not configured")
	}
	return m.generateImagesFunc(ctx, prompt, config)
}

func textResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: genai.NewContentFromText(text, genai.RoleModel),
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: chunks,
				},
			},
		},
	}
}

func webChunk(uri, title string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{URI: uri, Title: title}}
}

func imageResponse(data []byte) *genai.GenerateImagesResponse {
	return &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{
			{Image: &genai.Image{ImageBytes: data, MIMEType: "image/jpeg"}},
		},
	}
}

const sampleText = "City Council Approves New Park\n\nThe city council voted on Tuesday to fund a new park.\n\nConstruction starts next spring."

func newUseCase(gemini adapter.Gemini, opts ...article.Option) *article.UseCase {
	opts = append([]article.Option{article.WithRetry(3, 0)}, opts...)
	return article.New(repository.New(adapter.NewMemoryStorage()), gemini, opts...)
}

func TestGenerate(t *testing.T) {
	imageBytes := []byte("fake-jpeg")
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(sampleText,
				webChunk("https://news.example.com/park", "Park news"),
				&genai.GroundingChunk{},
				webChunk("", "no uri"),
				webChunk("https://gov.example.com/minutes", ""),
			), nil
		},
		generateImagesFunc: func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			return imageResponse(imageBytes), nil
		},
	}

	uc := newUseCase(gemini)
	a, err := uc.Generate(context.Background(), "  new city park  ")
	gt.NoError(t, err)

	gt.NotEqual(t, a.ID, "")
	gt.Equal(t, a.Title, "City Council Approves New Park")
	gt.Equal(t, a.Content, "The city council voted on Tuesday to fund a new park.\n\nConstruction starts next spring.")

	gt.A(t, a.Sources).Length(2)
	gt.Equal(t, a.Sources[0], model.GroundingSource{URI: "https://news.example.com/park", Title: "Park news"})
	gt.Equal(t, a.Sources[1], model.GroundingSource{URI: "https://gov.example.com/minutes", Title: model.UntitledSource})

	gt.Equal(t, a.ImageURL, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(imageBytes))

	// Prompt and request shape
	gt.S(t, gemini.lastPrompt).Contains(`"new city park"`)
	gt.S(t, gemini.lastPrompt).Contains("headline on the very first line")
	gt.A(t, gemini.lastConfig.Tools).Length(1)
	gt.NotNil(t, gemini.lastConfig.Tools[0].GoogleSearch)

	gt.S(t, gemini.imagePrompt).Contains("City Council Approves New Park")
	gt.S(t, gemini.imagePrompt).Contains("Avoid text and logos")
	gt.Equal(t, gemini.imageConfig.NumberOfImages, int32(1))
	gt.Equal(t, gemini.imageConfig.AspectRatio, "16:9")
}

func TestGenerateUniqueIDs(t *testing.T) {
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(sampleText), nil
		},
	}

	uc := newUseCase(gemini)
	a1, err := uc.Generate(context.Background(), "topic")
	gt.NoError(t, err)
	a2, err := uc.Generate(context.Background(), "topic")
	gt.NoError(t, err)
	gt.NotEqual(t, a1.ID, a2.ID)
	gt.NotNil(t, a1.Sources)
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	for _, topic := range []string{"", "   ", "\n\t"} {
		gemini := &mockGemini{}
		uc := newUseCase(gemini)

		_, err := uc.Generate(context.Background(), topic)
		gt.Error(t, err)
		gt.Equal(t, model.KindOf(err), model.KindInvalidInput)
		gt.Equal(t, gemini.contentCalls, 0)
		gt.Equal(t, gemini.imageCalls, 0)
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	uc := article.New(repository.New(adapter.NewMemoryStorage()), nil)

	_, err := uc.Generate(context.Background(), "elections")
	gt.Equal(t, model.KindOf(err), model.KindConfiguration)
	gt.S(t, model.PublicMessage(err)).Contains("API_KEY")
}

func TestGenerateHeadlineOnly(t *testing.T) {
	for _, text := range []string{"Only A Headline", "Only A Headline\n", "Headline\n\n   \n", ""} {
		gemini := &mockGemini{
			generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse(text), nil
			},
		}

		_, err := newUseCase(gemini).Generate(context.Background(), "topic")
		gt.Equal(t, model.KindOf(err), model.KindGenerationEmpty)
		gt.Equal(t, gemini.imageCalls, 0)
	}
}

func TestGenerateUntitled(t *testing.T) {
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("   \n\nBody without a headline."), nil
		},
	}

	a, err := newUseCase(gemini).Generate(context.Background(), "topic")
	gt.NoError(t, err)
	gt.Equal(t, a.Title, model.UntitledArticle)
	gt.Equal(t, a.Content, "Body without a headline.")
}

func TestGenerateImageFailureIsSwallowed(t *testing.T) {
	cases := map[string]func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error){
		"provider error": func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			return nil, genai.APIError{Code: 500, Status: "INTERNAL", Message: "imagen is down"}
		},
		"no images": func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			return &genai.GenerateImagesResponse{}, nil
		},
		"empty bytes": func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			return imageResponse(nil), nil
		},
		"nil response": func(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			return nil, nil
		},
	}

	for name, imageFunc := range cases {
		t.Run(name, func(t *testing.T) {
			gemini := &mockGemini{
				generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return textResponse(sampleText), nil
				},
				generateImagesFunc: imageFunc,
			}

			a, err := newUseCase(gemini).Generate(context.Background(), "topic")
			gt.NoError(t, err)
			gt.Equal(t, a.ImageURL, "")
			gt.Equal(t, gemini.imageCalls, 1)
		})
	}
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	gemini := &mockGemini{}
	gemini.generateContentFunc = func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		if gemini.contentCalls < 3 {
			return nil, genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "model overloaded"}
		}
		return textResponse(sampleText), nil
	}

	a, err := newUseCase(gemini).Generate(context.Background(), "topic")
	gt.NoError(t, err)
	gt.Equal(t, a.Title, "City Council Approves New Park")
	gt.Equal(t, gemini.contentCalls, 3)
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}
		},
	}

	_, err := newUseCase(gemini, article.WithRetry(2, 0)).Generate(context.Background(), "topic")
	gt.Equal(t, model.KindOf(err), model.KindGenerationFailed)
	gt.Equal(t, model.PublicMessage(err), "Failed to generate news from AI: Quota exceeded")
	gt.Equal(t, gemini.contentCalls, 2)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "Request contains an invalid argument."}
		},
	}

	_, err := newUseCase(gemini).Generate(context.Background(), "topic")
	gt.Equal(t, model.KindOf(err), model.KindGenerationFailed)
	gt.Equal(t, gemini.contentCalls, 1)
}

func TestGenerateInvalidAPIKey(t *testing.T) {
	const apiKey = "AIzaSy-very-secret"
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key. key=" + apiKey}
		},
	}

	_, err := newUseCase(gemini, article.WithSecrets(apiKey)).Generate(context.Background(), "topic")
	gt.Equal(t, model.KindOf(err), model.KindConfiguration)

	msg := model.PublicMessage(err)
	gt.S(t, msg).Contains("API key is invalid")
	gt.S(t, msg).NotContains(apiKey)
	gt.Equal(t, gemini.contentCalls, 1)
}

func TestGenerateRedactsSecrets(t *testing.T) {
	const apiKey = "AIzaSy-very-secret"
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "model not found for " + apiKey + " at /v1/models?key=abc123&alt=json"}
		},
	}

	_, err := newUseCase(gemini, article.WithSecrets(apiKey)).Generate(context.Background(), "topic")
	msg := model.PublicMessage(err)
	gt.S(t, msg).NotContains(apiKey)
	gt.S(t, msg).NotContains("abc123")
	gt.S(t, msg).Contains("[REDACTED]")
	gt.True(t, strings.HasPrefix(msg, "Failed to generate news from AI: "))
}

func TestGenerateTimeout(t *testing.T) {
	gemini := &mockGemini{
		generateContentFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	_, err := newUseCase(gemini, article.WithTimeout(10*time.Millisecond)).Generate(context.Background(), "topic")
	gt.Equal(t, model.KindOf(err), model.KindGenerationFailed)
	gt.S(t, model.PublicMessage(err)).Contains("timed out")
	gt.Equal(t, gemini.imageCalls, 0)
}

func TestGenerateCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gemini := &mockGemini{
		generateContentFunc: func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			cancel()
			return nil, genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "busy"}
		},
	}

	_, err := newUseCase(gemini, article.WithRetry(5, time.Hour)).Generate(ctx, "topic")
	gt.Equal(t, model.KindOf(err), model.KindGenerationFailed)
	gt.Equal(t, gemini.contentCalls, 1)
}
