package repository

import (
	"context"

	"github.com/m-mizutani/newsdesk/pkg/model"
)

// ArticleRepository persists saved articles
type ArticleRepository interface {
	// ListArticles returns every stored article in insertion order
	ListArticles(ctx context.Context) ([]*model.Article, error)

	// CreateArticle appends an article. It fails with KindConflict when the ID exists.
	CreateArticle(ctx context.Context, article *model.Article) error

	// DeleteArticle removes an article. It fails with KindNotFound when the ID is unknown.
	DeleteArticle(ctx context.Context, id model.ArticleID) error
}

// CredentialStore holds the singleton admin credential
type CredentialStore interface {
	// GetCredential returns the stored credential, creating the default one on first use
	GetCredential(ctx context.Context) (*model.Credential, error)

	// PutCredential replaces the stored credential
	PutCredential(ctx context.Context, cred *model.Credential) error
}

// Repository combines every persistence operation of the service
type Repository interface {
	ArticleRepository
	CredentialStore
}
