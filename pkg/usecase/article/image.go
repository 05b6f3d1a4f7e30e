package article

import (
	"context"
	"encoding/base64"

	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"google.golang.org/genai"
)

const (
	imageMIMEType    = "image/jpeg"
	imageAspectRatio = "16:9"
)

// generateImage returns a data URI for an illustration of title, or "" when the
// provider fails or returns nothing. It never fails the article.
func (u *UseCase) generateImage(ctx context.Context, title string) string {
	logger := logging.From(ctx)

	prompt, err := u.prompts.imagePrompt(title)
	if err != nil {
		logger.Warn("image prompt failed, proceeding without an image", "error", err)
		return ""
	}

	if u.imageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.imageTimeout)
		defer cancel()
	}

	resp, err := u.gemini.GenerateImages(ctx, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: imageMIMEType,
		AspectRatio:    imageAspectRatio,
	})
	if err != nil {
		logger.Warn("image generation failed, proceeding without an image", "error", err)
		return ""
	}

	if resp == nil || len(resp.GeneratedImages) == 0 ||
		resp.GeneratedImages[0] == nil ||
		resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		logger.Warn("image generation response did not contain images")
		return ""
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = imageMIMEType
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.ImageBytes)
}
