package model

import (
	"github.com/google/uuid"
)

const (
	UntitledArticle = "Untitled Article"
	UntitledSource  = "Untitled Source"
)

type ArticleID string

// NewArticleID generates a new unique ArticleID
func NewArticleID() ArticleID {
	return ArticleID(uuid.New().String())
}

// Article is a generated or stored news item
type Article struct {
	ID       ArticleID         `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Sources  []GroundingSource `json:"sources"`
	ImageURL string            `json:"imageUrl,omitempty"`
}

// GroundingSource is a web citation attached to generated content
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Validate checks fields required to store an article
func (a *Article) Validate() error {
	if a == nil || a.ID == "" {
		return NewError(KindInvalidInput, "Invalid article data")
	}
	return nil
}
