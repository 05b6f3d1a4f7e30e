package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

func (b *Blob) GetCredential(ctx context.Context) (*model.Credential, error) {
	var cred *model.Credential

	err := b.update(ctx, b.credentialKey, func(ctx context.Context) error {
		doc, err := loadDocument[model.Credential](ctx, b.storage, b.credentialKey)
		if err != nil {
			return goerr.Wrap(err, "failed to load credential")
		}

		if doc.exists {
			cred = &doc.value
			return nil
		}

		// First run: create the default credential unless another request beats us to it
		def, err := b.newDefault()
		if err != nil {
			return goerr.Wrap(err, "failed to build default credential")
		}
		if err := commit(ctx, b.storage, b.credentialKey, *def, doc); err != nil {
			return err
		}

		logging.From(ctx).Info("created default credential", "key", b.credentialKey)
		cred = def
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cred, nil
}

func (b *Blob) PutCredential(ctx context.Context, cred *model.Credential) error {
	if cred == nil {
		return goerr.New("credential is nil")
	}

	if err := saveDocument(ctx, b.storage, b.credentialKey, *cred, nil); err != nil {
		return goerr.Wrap(err, "failed to save credential")
	}
	return nil
}
