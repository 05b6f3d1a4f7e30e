package article

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

// List returns all saved articles
func (u *UseCase) List(ctx context.Context) ([]*model.Article, error) {
	articles, err := u.repo.ListArticles(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list articles")
	}
	return articles, nil
}

// Save stores a generated article
func (u *UseCase) Save(ctx context.Context, article *model.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}

	if err := u.repo.CreateArticle(ctx, article); err != nil {
		return goerr.Wrap(err, "failed to save article", goerr.V("id", article.ID))
	}

	logging.From(ctx).Info("article saved", "id", article.ID, "title", article.Title)
	return nil
}

// Delete removes a saved article
func (u *UseCase) Delete(ctx context.Context, id model.ArticleID) error {
	if id == "" {
		return model.NewError(model.KindInvalidInput, "Article ID is required")
	}

	if err := u.repo.DeleteArticle(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete article", goerr.V("id", id))
	}

	logging.From(ctx).Info("article deleted", "id", id)
	return nil
}
