package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"soarbench.org/soar/bioportal"
	"soarbench.org/soar/cleansing"
	"soarbench.org/soar/lemmatizer"
	"soarbench.org/soar/logger"
	"soarbench.org/soar/ontology"
	"soarbench.org/soar/redis"
	"soarbench.org/soar/rmq"
	"soarbench.org/soar/s3client"
	"soarbench.org/soar/secrets"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
)

type Config struct {
	ConfigPath   string `envconfig:"SOAR_CONFIG_PATH" default:"configs"`
	SecretsPath  string `envconfig:"SOAR_SECRETS_PATH" default:"env.toml"`
	ResourcePath string `envconfig:"SOAR_RESOURCE_PATH"`
	OntologyPath string `envconfig:"SOAR_ONTOLOGY_PATH" default:"cl.obo"`
	CachePath    string `envconfig:"SOAR_CACHE_PATH" default:".cache"`
	S3Enabled    bool   `envconfig:"SOAR_S3_ENABLED" default:"false"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "soar",
		Short:        "Cell type annotation benchmark",
		Long:         "soar prompts language models to annotate single-cell clusters from their marker genes and scores the answers against Cell Ontology labels.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		annotateCmd(),
		normalizeLabelsCmd(),
		evalCmd(),
		scoreCmd(),
		resolveCmd(),
		decodeCmd(),
		convertCmd(),
	)
	return rootCmd
}

func main() {
	logger.SetupLogging()
	soarLogger := logger.NewLogger("Main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		soarLogger.Fatal().Caller().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// app holds the clients shared by all subcommands. Optional backends stay nil
// when their environment switch is off.
type app struct {
	config   Config
	secrets  *secrets.Secrets
	store    storage.Store
	notifier *rmq.Notifier
	cache    *redis.Client
	log      zerolog.Logger
}

func newApp() (*app, error) {
	a := &app{log: logger.NewLogger("App")}
	if err := envconfig.Process("", &a.config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	s, err := secrets.Load(a.config.SecretsPath)
	if err != nil {
		return nil, err
	}
	a.secrets = s

	if a.config.S3Enabled {
		client, err := s3client.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		a.store = storage.New(client)
	} else {
		a.store = storage.New(nil)
	}

	rmqConfig, err := rmq.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	if a.notifier, err = rmq.NewNotifier(rmqConfig); err != nil {
		return nil, err
	}

	redisConfig, err := redis.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	if redisConfig.Enabled {
		a.cache = redis.NewClient(redisConfig)
	}
	return a, nil
}

func (a *app) Close() {
	a.notifier.Close()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Err(err).Msg("Failed to close redis client")
		}
	}
}

func (a *app) notify(ctx context.Context, job, output string, count int, metrics map[string]float64) {
	summary := types.NewJobSummary(job, output, count)
	summary.Metrics = metrics
	a.notifier.Notify(ctx, summary)
}

func (a *app) singularizer() (lemmatizer.Singularizer, error) {
	if a.config.ResourcePath == "" {
		return lemmatizer.NewSingularizer(lemmatizer.DefaultNounRules()), nil
	}
	rules, err := lemmatizer.LoadNounRules(a.config.ResourcePath)
	if err != nil {
		return nil, err
	}
	return lemmatizer.NewSingularizer(rules), nil
}

func (a *app) normalizer() (*cleansing.Normalizer, error) {
	singular, err := a.singularizer()
	if err != nil {
		return nil, err
	}
	return cleansing.New(singular), nil
}

func (a *app) resolver() (*ontology.Resolver, error) {
	graph, err := ontology.LoadFile(a.config.OntologyPath, a.config.CachePath)
	if err != nil {
		return nil, err
	}
	a.log.Info().Int("concepts", graph.Len()).Msg("Ontology loaded")
	return ontology.NewResolver(graph), nil
}

func (a *app) decoder(cfg bioportal.Config) *bioportal.Decoder {
	if cfg.APIKey == "" {
		cfg.APIKey = a.secrets.BioPortalToken()
	}
	if a.cache != nil {
		return bioportal.NewDecoder(cfg, bioportal.WithCache(a.cache))
	}
	return bioportal.NewDecoder(cfg)
}

// withApp builds the shared clients around a subcommand body.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := storage.MarshalJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
