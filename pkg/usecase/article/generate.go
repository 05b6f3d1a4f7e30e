package article

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"google.golang.org/genai"
)

const (
	msgTopicRequired   = "Topic is required"
	msgKeyMissing      = "Gemini API key is not configured. Please set the API_KEY environment variable in your deployment settings."
	msgContentEmpty    = "The generated content was empty. The topic may have been too ambiguous or restrictive."
	msgGenerationError = "Failed to generate news from AI: "
)

// Generate drafts a news article about topic. Only the text generation can fail the
// call; the image is best effort and left empty when it cannot be produced.
func (u *UseCase) Generate(ctx context.Context, topic string) (*model.Article, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, model.NewError(model.KindInvalidInput, msgTopicRequired)
	}
	if u.gemini == nil {
		return nil, model.NewError(model.KindConfiguration, msgKeyMissing)
	}

	logger := logging.From(ctx)
	logger.Info("generating article", "topic", topic)

	prompt, err := u.prompts.articlePrompt(topic)
	if err != nil {
		return nil, err
	}

	resp, err := u.generateText(ctx, prompt)
	if err != nil {
		logger.Error("failed to generate article", "error", err, "topic", topic)
		return nil, u.providerError(err)
	}

	title, content := parseArticleText(responseText(resp))
	if content == "" {
		return nil, model.NewError(model.KindGenerationEmpty, msgGenerationError+msgContentEmpty)
	}

	article := &model.Article{
		ID:       model.NewArticleID(),
		Title:    title,
		Content:  content,
		Sources:  extractSources(resp),
		ImageURL: u.generateImage(ctx, title),
	}

	logger.Info("article generated",
		"id", article.ID,
		"title", article.Title,
		"sources", len(article.Sources),
		"has_image", article.ImageURL != "")

	return article, nil
}

// generateText calls the text model with search grounding, retrying transient
// provider failures with exponential backoff
func (u *UseCase) generateText(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	backoff := u.retryBackoff
	for attempt := 1; ; attempt++ {
		resp, err := u.gemini.GenerateContent(ctx, genai.Text(prompt), config)
		if err == nil {
			return resp, nil
		}

		if attempt >= u.maxAttempts || !isTransient(err) {
			return nil, goerr.Wrap(err, "text generation failed", goerr.V("attempts", attempt))
		}

		logging.From(ctx).Warn("transient provider error, retrying",
			"error", err,
			"attempt", attempt,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "text generation aborted", goerr.V("attempts", attempt))
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// parseArticleText splits raw model output into a headline (first line) and body
// (everything after the blank separator line)
func parseArticleText(raw string) (title, content string) {
	lines := strings.Split(raw, "\n")

	title = strings.TrimSpace(lines[0])
	if title == "" {
		title = model.UntitledArticle
	}

	if len(lines) > 2 {
		content = strings.TrimSpace(strings.Join(lines[2:], "\n"))
	}

	return title, content
}

// extractSources converts grounding chunks into citations. Chunks without a web URI
// are dropped.
func extractSources(resp *genai.GenerateContentResponse) []model.GroundingSource {
	sources := []model.GroundingSource{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return sources
	}

	metadata := resp.Candidates[0].GroundingMetadata
	if metadata == nil {
		return sources
	}

	for _, chunk := range metadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}

		title := strings.TrimSpace(chunk.Web.Title)
		if title == "" {
			title = model.UntitledSource
		}

		sources = append(sources, model.GroundingSource{
			URI:   chunk.Web.URI,
			Title: title,
		})
	}

	return sources
}
