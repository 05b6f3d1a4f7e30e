package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
)

func (b *Blob) loadArticles(ctx context.Context) (*document[[]*model.Article], error) {
	doc, err := loadDocument[[]*model.Article](ctx, b.storage, b.articlesKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load articles")
	}

	// null entries are dropped and disappear from the document on the next write
	if doc.value != nil {
		articles := make([]*model.Article, 0, len(doc.value))
		for _, a := range doc.value {
			if a != nil {
				articles = append(articles, a)
			}
		}
		doc.value = articles
	}
	return doc, nil
}

func (b *Blob) ListArticles(ctx context.Context) ([]*model.Article, error) {
	doc, err := b.loadArticles(ctx)
	if err != nil {
		return nil, err
	}

	if doc.value == nil {
		return []*model.Article{}, nil
	}
	return doc.value, nil
}

func (b *Blob) CreateArticle(ctx context.Context, article *model.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}

	return b.update(ctx, b.articlesKey, func(ctx context.Context) error {
		doc, err := b.loadArticles(ctx)
		if err != nil {
			return err
		}

		for _, a := range doc.value {
			if a.ID == article.ID {
				return goerr.Wrap(model.NewError(model.KindConflict, "Article already exists"),
					"failed to create article", goerr.V("id", article.ID))
			}
		}

		articles := append(doc.value, article)
		return commit(ctx, b.storage, b.articlesKey, articles, doc)
	})
}

func (b *Blob) DeleteArticle(ctx context.Context, id model.ArticleID) error {
	if id == "" {
		return model.NewError(model.KindInvalidInput, "Article ID is required")
	}

	return b.update(ctx, b.articlesKey, func(ctx context.Context) error {
		doc, err := b.loadArticles(ctx)
		if err != nil {
			return err
		}

		filtered := make([]*model.Article, 0, len(doc.value))
		for _, a := range doc.value {
			if a.ID != id {
				filtered = append(filtered, a)
			}
		}

		if len(filtered) == len(doc.value) {
			return goerr.Wrap(model.NewError(model.KindNotFound, "Article not found"),
				"failed to delete article", goerr.V("id", id))
		}

		return commit(ctx, b.storage, b.articlesKey, filtered, doc)
	})
}
