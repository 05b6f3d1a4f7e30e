package interfaces

import (
	"context"

	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/usecase/article"
	"github.com/m-mizutani/newsdesk/pkg/usecase/auth"
)

// ArticleUseCase is the article surface shared by the HTTP and MCP controllers
type ArticleUseCase interface {
	// Generate drafts an article about topic without saving it
	Generate(ctx context.Context, topic string) (*model.Article, error)

	// List returns every saved article
	List(ctx context.Context) ([]*model.Article, error)

	// Save stores an article. Duplicate IDs fail with KindConflict.
	Save(ctx context.Context, article *model.Article) error

	// Delete removes a saved article. Unknown IDs fail with KindNotFound.
	Delete(ctx context.Context, id model.ArticleID) error
}

// AuthGateway verifies callers and manages the admin password
type AuthGateway = auth.Gateway

var _ ArticleUseCase = (*article.UseCase)(nil)
