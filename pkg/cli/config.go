package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/adapter"
	"github.com/m-mizutani/pollen/pkg/policy"
	"github.com/m-mizutani/pollen/pkg/repository"
	"github.com/m-mizutani/pollen/pkg/request"
	"github.com/m-mizutani/pollen/pkg/usecase/studio"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	backendMemory    = "memory"
	backendFile      = "file"
	backendSQLite    = "sqlite"
	backendFirestore = "firestore"
	backendGCS       = "gcs"

	providerPollinations = "pollinations"
	providerGemini       = "gemini"
)

// config holds configuration values
type config struct {
	configPath string

	// Repository
	backend             string
	dataDir             string
	namespace           string
	credentials         string
	firestoreProject    string
	firestoreDatabase   string
	firestoreCollection string
	gcsBucket           string
	gcsPrefix           string

	// API
	provider       string
	textEndpoint   string
	imageEndpoint  string
	textModel      string
	timeout        time.Duration
	geminiProject  string
	geminiLocation string
	policyDir      string

	// Image defaults, filled by the image command flags or the profile
	imageWidth  int64
	imageHeight int64

	// Logging
	logLevel  string
	logFormat string
}

// storageFlags returns flags selecting where history is persisted
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML profile",
			Sources:     cli.EnvVars("POLLEN_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "History backend (memory, file, sqlite, firestore, gcs)",
			Value:       backendFile,
			Sources:     cli.EnvVars("POLLEN_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory of the file and sqlite backends (default ~/.pollen)",
			Sources:     cli.EnvVars("POLLEN_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "namespace",
			Usage:       "Key prefix to keep several studios in one backend",
			Sources:     cli.EnvVars("POLLEN_NAMESPACE"),
			Destination: &cfg.namespace,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Google Cloud credentials file for firestore and gcs",
			Sources:     cli.EnvVars("POLLEN_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentials,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID of Firestore",
			Sources:     cli.EnvVars("POLLEN_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("POLLEN_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding studio state",
			Value:       "pollen",
			Sources:     cli.EnvVars("POLLEN_FIRESTORE_COLLECTION"),
			Destination: &cfg.firestoreCollection,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket of the gcs backend",
			Sources:     cli.EnvVars("POLLEN_GCS_BUCKET"),
			Destination: &cfg.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix of the gcs backend",
			Value:       "pollen/",
			Sources:     cli.EnvVars("POLLEN_GCS_PREFIX"),
			Destination: &cfg.gcsPrefix,
		},
	}
}

// apiFlags returns flags for the generation APIs
func apiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "Text provider (pollinations, gemini)",
			Value:       providerPollinations,
			Sources:     cli.EnvVars("POLLEN_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "text-endpoint",
			Usage:       "Text generation endpoint",
			Value:       request.DefaultTextEndpoint,
			Sources:     cli.EnvVars("POLLEN_TEXT_ENDPOINT"),
			Destination: &cfg.textEndpoint,
		},
		&cli.StringFlag{
			Name:        "image-endpoint",
			Usage:       "Image generation base URL",
			Value:       request.DefaultImageEndpoint,
			Sources:     cli.EnvVars("POLLEN_IMAGE_ENDPOINT"),
			Destination: &cfg.imageEndpoint,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Text model name",
			Sources:     cli.EnvVars("POLLEN_MODEL"),
			Destination: &cfg.textModel,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "HTTP timeout of generation calls",
			Value:       120 * time.Second,
			Sources:     cli.EnvVars("POLLEN_TIMEOUT"),
			Destination: &cfg.timeout,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego prompt policies (package prompt)",
			Sources:     cli.EnvVars("POLLEN_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// logFlags returns flags for logging
func logFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("POLLEN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("POLLEN_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// allFlags returns every config flag of commands that touch the studio
func allFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, storageFlags(cfg)...)
	flags = append(flags, apiFlags(cfg)...)
	flags = append(flags, logFlags(cfg)...)
	return flags
}

// setup applies the YAML profile and attaches a logger to ctx
func (cfg *config) setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	if cfg.configPath != "" {
		p, err := loadProfile(cfg.configPath)
		if err != nil {
			return ctx, err
		}
		p.apply(cfg, c.IsSet)
	}

	logger := logging.New(cfg.logLevel, cfg.logFormat, stderrOf(c))
	logging.SetDefault(logger)

	return logging.With(ctx, logger), nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentials)}
}

func (cfg *config) resolveDataDir() (string, error) {
	if cfg.dataDir != "" {
		return cfg.dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to find home directory, set --data-dir")
	}
	return filepath.Join(home, ".pollen"), nil
}

// newRepository creates the configured repository. The returned function releases it.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	var (
		repo    repository.Repository
		closeFn = func() {}
	)

	switch cfg.backend {
	case backendMemory:
		repo = repository.NewMemory()

	case backendFile, "":
		dir, err := cfg.resolveDataDir()
		if err != nil {
			return nil, nil, err
		}
		file, err := repository.NewFile(dir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create file repository")
		}
		repo = file

	case backendSQLite:
		dir, err := cfg.resolveDataDir()
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
		}
		db, err := repository.NewSQLite(filepath.Join(dir, "pollen.db"))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create sqlite repository")
		}
		repo = db
		closeFn = func() { _ = db.Close() }

	case backendFirestore:
		if cfg.firestoreProject == "" {
			return nil, nil, goerr.New("firestore-project is required")
		}
		if cfg.firestoreDatabase == "" {
			return nil, nil, goerr.New("firestore-database is required")
		}
		fs, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase, cfg.firestoreCollection, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		repo = fs
		closeFn = func() { _ = fs.Close() }

	case backendGCS:
		if cfg.gcsBucket == "" {
			return nil, nil, goerr.New("gcs-bucket is required")
		}
		storage, err := adapter.NewStorage(ctx, cfg.gcsBucket, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create storage")
		}
		repo = repository.NewGCS(storage, cfg.gcsPrefix)

	default:
		return nil, nil, goerr.New("unknown backend",
			goerr.V("backend", cfg.backend),
			goerr.V("supported", []string{backendMemory, backendFile, backendSQLite, backendFirestore, backendGCS}))
	}

	return repository.WithNamespace(repo, cfg.namespace), closeFn, nil
}

// newPollinations creates the HTTP client of the Pollinations API
func (cfg *config) newPollinations() *adapter.Pollinations {
	return adapter.NewPollinations(
		adapter.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		adapter.WithTextEndpoint(cfg.textEndpoint),
	)
}

// newTextGenerator creates the configured text provider
func (cfg *config) newTextGenerator(ctx context.Context) (adapter.TextGenerator, error) {
	switch cfg.provider {
	case providerPollinations, "":
		return cfg.newPollinations(), nil

	case providerGemini:
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		var opts []adapter.GeminiOption
		if cfg.textModel != "" {
			opts = append(opts, adapter.WithGenerativeModel(cfg.textModel))
		}
		gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return gemini, nil

	default:
		return nil, goerr.New("unknown provider",
			goerr.V("provider", cfg.provider),
			goerr.V("supported", []string{providerPollinations, providerGemini}))
	}
}

// newStudio wires repository, providers and options into a studio UseCase
func (cfg *config) newStudio(ctx context.Context, opts ...studio.Option) (*studio.UseCase, func(), error) {
	text, err := cfg.newTextGenerator(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg.newStudioWith(ctx, text, opts...)
}

// newStudioWith is newStudio around an already built text provider. The provider's
// default model applies unless --model is set.
func (cfg *config) newStudioWith(ctx context.Context, text adapter.TextGenerator, opts ...studio.Option) (*studio.UseCase, func(), error) {
	repo, closeFn, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	base := []studio.Option{
		studio.WithImageEndpoint(cfg.imageEndpoint),
	}
	if cfg.textModel != "" {
		base = append(base, studio.WithTextModel(cfg.textModel))
	}
	if cfg.policyDir != "" {
		engine, err := policy.New(ctx, cfg.policyDir)
		if err != nil {
			closeFn()
			return nil, nil, goerr.Wrap(err, "failed to load prompt policy")
		}
		base = append(base, studio.WithPolicy(engine))
	}

	uc, err := studio.New(ctx, studio.NewInput{
		Repo:   repo,
		Text:   text,
		Prober: cfg.newPollinations(),
	}, append(base, opts...)...)
	if err != nil {
		closeFn()
		return nil, nil, goerr.Wrap(err, "failed to create studio")
	}

	return uc, closeFn, nil
}
