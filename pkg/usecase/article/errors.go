package article

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/m-mizutani/newsdesk/pkg/model"
	"google.golang.org/genai"
)

const msgKeyInvalid = "The configured Gemini API key is invalid. Please check it in your deployment settings."

var keyParamPattern = regexp.MustCompile(`(?i)(key=)[^&\s"']+`)

// isTransient reports whether a provider failure is worth retrying
func isTransient(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// providerError translates a text generation failure into an error that is safe to
// return to callers
func (u *UseCase) providerError(err error) error {
	var apiErr genai.APIError
	hasAPIErr := errors.As(err, &apiErr)
	var netErr net.Error

	if (hasAPIErr && isCredentialFailure(apiErr)) || strings.Contains(err.Error(), "API key not valid") {
		return model.WrapError(err, model.KindConfiguration, msgKeyInvalid)
	}

	var reason string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "the request to the provider timed out."
	case errors.Is(err, context.Canceled):
		reason = "the request was canceled."
	case hasAPIErr && apiErr.Message != "":
		reason = apiErr.Message
	case errors.As(err, &netErr):
		reason = "could not reach the provider."
	default:
		reason = "an unknown error occurred."
	}

	return model.WrapError(err, model.KindGenerationFailed, msgGenerationError+u.redact(reason))
}

func isCredentialFailure(apiErr genai.APIError) bool {
	switch {
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
		return true
	case apiErr.Status == "UNAUTHENTICATED", apiErr.Status == "PERMISSION_DENIED":
		return true
	case strings.Contains(apiErr.Message, "API key not valid"):
		return true
	}
	return false
}

// redact removes configured secrets and key query parameters from msg
func (u *UseCase) redact(msg string) string {
	for _, secret := range u.secrets {
		msg = strings.ReplaceAll(msg, secret, "[REDACTED]")
	}
	return keyParamPattern.ReplaceAllString(msg, "${1}[REDACTED]")
}
