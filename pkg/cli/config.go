package cli

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
	"github.com/m-mizutani/newsdesk/pkg/repository"
	"github.com/m-mizutani/newsdesk/pkg/usecase/article"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	backendMemory    = "memory"
	backendGCS       = "gcs"
	backendS3        = "s3"
	backendFirestore = "firestore"
)

// config holds configuration values
type config struct {
	// Storage
	backend             string
	bucket              string
	prefix              string
	s3Region            string
	s3Endpoint          string
	s3AccessKeyID       string
	s3SecretAccessKey   string
	s3PathStyle         bool
	firestoreProject    string
	firestoreDatabase   string
	firestoreCollection string

	// Gemini
	apiKey         string
	geminiProject  string
	geminiLocation string
	textModel      string
	imageModel     string
	promptFile     string
	timeout        time.Duration
}

// storageFlags returns flags selecting the document store with destination config
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "Document store backend (memory, gcs, s3, firestore)",
			Value:       backendMemory,
			Sources:     cli.EnvVars("NEWSDESK_STORAGE"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Bucket name for gcs and s3 backends",
			Sources:     cli.EnvVars("NEWSDESK_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object key prefix for gcs and s3 backends",
			Sources:     cli.EnvVars("NEWSDESK_PREFIX"),
			Destination: &cfg.prefix,
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "S3 region",
			Value:       "us-east-1",
			Sources:     cli.EnvVars("NEWSDESK_S3_REGION", "AWS_REGION"),
			Destination: &cfg.s3Region,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "Endpoint of an S3 compatible service",
			Sources:     cli.EnvVars("NEWSDESK_S3_ENDPOINT"),
			Destination: &cfg.s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "s3-access-key-id",
			Usage:       "S3 access key ID",
			Sources:     cli.EnvVars("NEWSDESK_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"),
			Destination: &cfg.s3AccessKeyID,
		},
		&cli.StringFlag{
			Name:        "s3-secret-access-key",
			Usage:       "S3 secret access key",
			Sources:     cli.EnvVars("NEWSDESK_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"),
			Destination: &cfg.s3SecretAccessKey,
		},
		&cli.BoolFlag{
			Name:        "s3-path-style",
			Usage:       "Use path style addressing for S3",
			Sources:     cli.EnvVars("NEWSDESK_S3_PATH_STYLE"),
			Destination: &cfg.s3PathStyle,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for the firestore backend",
			Sources:     cli.EnvVars("NEWSDESK_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("NEWSDESK_FIRESTORE_DATABASE", "FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding the documents",
			Value:       "newsdesk",
			Sources:     cli.EnvVars("NEWSDESK_FIRESTORE_COLLECTION"),
			Destination: &cfg.firestoreCollection,
		},
	}
}

// geminiFlags returns flags for the generation provider with destination config
func geminiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("API_KEY", "GEMINI_API_KEY"),
			Destination: &cfg.apiKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID to use Gemini through Vertex AI instead of an API key",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "text-model",
			Usage:       "Model for article text",
			Sources:     cli.EnvVars("NEWSDESK_TEXT_MODEL"),
			Destination: &cfg.textModel,
		},
		&cli.StringFlag{
			Name:        "image-model",
			Usage:       "Model for article images",
			Sources:     cli.EnvVars("NEWSDESK_IMAGE_MODEL"),
			Destination: &cfg.imageModel,
		},
		&cli.StringFlag{
			Name:        "prompt-file",
			Usage:       "YAML file overriding prompts and models",
			Sources:     cli.EnvVars("NEWSDESK_PROMPT_FILE"),
			Destination: &cfg.promptFile,
		},
		&cli.DurationFlag{
			Name:        "generate-timeout",
			Usage:       "Timeout of the article text request",
			Value:       article.DefaultTimeout,
			Sources:     cli.EnvVars("NEWSDESK_GENERATE_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// newStorage creates the Storage adapter selected by --storage
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	switch strings.ToLower(cfg.backend) {
	case backendMemory, "":
		logging.From(ctx).Warn("using in-memory storage, data is lost on exit")
		return adapter.NewMemoryStorage(), nil

	case backendGCS:
		if cfg.bucket == "" {
			return nil, goerr.New("bucket is required for gcs storage")
		}
		storage, err := adapter.NewStorage(ctx, cfg.bucket, cfg.prefix)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return storage, nil

	case backendS3:
		storage, err := adapter.NewS3Storage(ctx, adapter.S3Config{
			Bucket:          cfg.bucket,
			Prefix:          cfg.prefix,
			Region:          cfg.s3Region,
			Endpoint:        cfg.s3Endpoint,
			AccessKeyID:     cfg.s3AccessKeyID,
			SecretAccessKey: cfg.s3SecretAccessKey,
			PathStyle:       cfg.s3PathStyle,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return storage, nil

	case backendFirestore:
		if cfg.firestoreProject == "" {
			return nil, goerr.New("firestore-project is required for firestore storage")
		}
		storage, err := adapter.NewFirestoreStorage(ctx, cfg.firestoreProject, cfg.firestoreDatabase, cfg.firestoreCollection)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return storage, nil
	}

	return nil, goerr.New("unsupported storage backend",
		goerr.V("storage", cfg.backend),
		goerr.V("supported", []string{backendMemory, backendGCS, backendS3, backendFirestore}))
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}
	return repository.New(storage), nil
}

// newGemini creates a new Gemini adapter instance. It returns a nil interface when
// neither an API key nor a Vertex AI project is configured, leaving generation to
// fail with a configuration error.
func (cfg *config) newGemini(ctx context.Context, prompts *article.Prompts) (adapter.Gemini, error) {
	textModel, imageModel := cfg.textModel, cfg.imageModel
	if textModel == "" {
		textModel = prompts.TextModel
	}
	if imageModel == "" {
		imageModel = prompts.ImageModel
	}
	opts := []adapter.GeminiOption{
		adapter.WithGenerativeModel(textModel),
		adapter.WithImageModel(imageModel),
	}

	switch {
	case cfg.apiKey != "":
		client, err := adapter.NewGemini(ctx, cfg.apiKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return client, nil

	case cfg.geminiProject != "":
		client, err := adapter.NewVertexGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return client, nil
	}

	logging.From(ctx).Warn("no Gemini API key configured, article generation is disabled")
	return nil, nil
}

// newPrompts loads --prompt-file or returns the built-in prompts
func (cfg *config) newPrompts() (*article.Prompts, error) {
	if cfg.promptFile == "" {
		return article.DefaultPrompts(), nil
	}
	return article.LoadPrompts(cfg.promptFile)
}

// newArticleUseCase wires the article use case on top of repo
func (cfg *config) newArticleUseCase(ctx context.Context, repo repository.ArticleRepository) (*article.UseCase, error) {
	prompts, err := cfg.newPrompts()
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx, prompts)
	if err != nil {
		return nil, err
	}

	return article.New(repo, gemini,
		article.WithPrompts(prompts),
		article.WithTimeout(cfg.timeout),
		article.WithSecrets(cfg.apiKey),
	), nil
}
