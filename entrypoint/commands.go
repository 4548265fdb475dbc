package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"soarbench.org/soar/bioportal"
	"soarbench.org/soar/cleansing"
	"soarbench.org/soar/dataset"
	"soarbench.org/soar/evaluation"
	"soarbench.org/soar/normalization"
	"soarbench.org/soar/ontology"
	"soarbench.org/soar/task"
	"soarbench.org/soar/types"
)

func annotateCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "annotate [experiment...]",
		Short: "Run annotation experiments",
		Long:  "Runs the named experiments from the config directory, or the single experiment given with --config.",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var cfgs []types.TaskConfig
			if configFile != "" {
				cfg, err := types.LoadConfiguration(configFile)
				if err != nil {
					return err
				}
				cfgs = append(cfgs, cfg)
			} else {
				all, err := types.LoadConfigurations(a.config.ConfigPath)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return fmt.Errorf("no experiment given, %d available in %s", len(all), a.config.ConfigPath)
				}
				for _, name := range args {
					cfg, ok := types.FindConfiguration(all, name)
					if !ok {
						return fmt.Errorf("experiment %q not found in %s", name, a.config.ConfigPath)
					}
					cfgs = append(cfgs, cfg)
				}
			}

			ctx := cmd.Context()
			for _, cfg := range cfgs {
				if cfg.Pipeline.OpenAIToken == "" {
					cfg.Pipeline.OpenAIToken = a.secrets.OpenAIToken()
				}
				if cfg.Pipeline.HuggingfaceToken == "" {
					cfg.Pipeline.HuggingfaceToken = a.secrets.HuggingFaceToken()
				}
				annotation, err := task.NewAnnotationTask(ctx, cfg, task.Deps{Store: a.store})
				if err != nil {
					return fmt.Errorf("experiment %s: %w", cfg.Name, err)
				}
				results, err := annotation.Run(ctx)
				if err != nil {
					return fmt.Errorf("experiment %s: %w", cfg.Name, err)
				}
				a.notify(ctx, "annotate", annotation.ResultsPath(), len(results), nil)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "experiment YAML file")
	return cmd
}

func normalizeLabelsCmd() *cobra.Command {
	var params normalization.Params
	var local bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "normalize-labels",
		Short: "Map ground truth labels to ontology names and synonyms",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var resolver normalization.LabelResolver
			if local {
				r, err := a.resolver()
				if err != nil {
					return err
				}
				resolver = normalization.LocalResolver{Resolver: r}
			} else {
				cfg, err := bioportal.ReadEnvironment()
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("time-interval") {
					cfg.TimeInterval = interval
				}
				resolver = normalization.RemoteResolver{Decoder: a.decoder(cfg)}
			}

			ctx := cmd.Context()
			references, err := normalization.Run(ctx, a.store, params, resolver)
			if err != nil {
				return err
			}
			a.notify(ctx, "normalize-labels", params.NormalizedAnswersPath, len(references), nil)
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&params.ChatResultsPath, "chat-results", "", "annotation results file")
	flags.StringVar(&params.NormalizedAnswersPath, "normalized-answers", "", "reference answers file to write")
	flags.StringVar(&params.PossibleLabelMappingPath, "label-mapping", "", "optional label to names mapping file to write")
	flags.BoolVar(&local, "local", false, "resolve against the local OBO file instead of BioPortal")
	flags.DurationVar(&interval, "time-interval", 100*time.Millisecond, "pause between BioPortal requests")
	_ = cmd.MarkFlagRequired("chat-results")
	_ = cmd.MarkFlagRequired("normalized-answers")
	return cmd
}

func evalCmd() *cobra.Command {
	var params evaluation.Params
	var prefix, instructionModel string
	var group int
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score annotation results against reference answers",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			normalizer, err := a.normalizer()
			if err != nil {
				return err
			}
			params.Strategy = cleansing.StrategyFromOptions(prefix, group, instructionModel)

			ctx := cmd.Context()
			report, err := evaluation.NewEvaluator(a.store, normalizer, evaluation.PorterStem).Run(ctx, params)
			if err != nil {
				return err
			}
			a.notify(ctx, "eval", params.ResultsPath, report.Count, report.Metrics())
			return printJSON(cmd, report)
		}),
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&params.ChatResultsPaths, "chat-results", nil, "annotation results files")
	flags.StringSliceVar(&params.NormalizedAnswersPaths, "normalized-answers", nil, "reference answers files, one per results file")
	flags.StringVar(&params.ResultsPath, "results-path", "eval_results.json", "prediction and reference pairs file to write")
	flags.StringVar(&params.ModelName, "model-name", "", "model whose answers are scored")
	flags.BoolVar(&params.SaveResults, "save-results", true, "write the prediction and reference pairs")
	flags.StringVar(&params.GroupBy, "group-by", types.GroupByNone, "report per dataset or tissue as well")
	flags.StringVar(&prefix, "instruction-prefix", "", "regular expression capturing the answer")
	flags.IntVar(&group, "instruction-prefix-group-index", 1, "capture group holding the answer")
	flags.StringVar(&instructionModel, "instruction-model", "", "named answer extraction profile")
	_ = cmd.MarkFlagRequired("chat-results")
	_ = cmd.MarkFlagRequired("normalized-answers")
	return cmd
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <eval-results>...",
		Short: "Rescore saved prediction and reference pairs",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			normalizer, err := a.normalizer()
			if err != nil {
				return err
			}
			report, err := evaluation.NewEvaluator(a.store, normalizer, evaluation.PorterStem).ScoreResults(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		}),
	}
}

func resolveCmd() *cobra.Command {
	var ambiguity, broad, search bool
	cmd := &cobra.Command{
		Use:   "resolve <name>...",
		Short: "Map free text cell type names onto the local ontology",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			resolver, err := a.resolver()
			if err != nil {
				return err
			}
			if search {
				out := make(map[string][]types.Concept, len(args))
				for _, name := range args {
					out[name] = resolver.Graph().Search(name)
				}
				return printJSON(cmd, out)
			}
			if broad {
				out := make(map[string][]types.CellType, len(args))
				for _, name := range args {
					out[name] = resolver.MapNameToBroadType(name)
				}
				return printJSON(cmd, out)
			}
			out := make([]ontology.Resolution, 0, len(args))
			for _, name := range args {
				out = append(out, resolver.Resolve(name, ambiguity))
			}
			return printJSON(cmd, out)
		}),
	}
	cmd.Flags().BoolVar(&ambiguity, "ambiguity", false, "list all candidates when several match")
	cmd.Flags().BoolVar(&broad, "broad", false, "report the parents of the match instead")
	cmd.Flags().BoolVar(&search, "search", false, "list every concept whose label contains the name")
	return cmd
}

func decodeCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "decode <name>...",
		Short: "Look cell type names up in BioPortal",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			cfg, err := bioportal.ReadEnvironment()
			if err != nil {
				return err
			}
			terms, err := a.decoder(cfg).Decode(cmd.Context(), args, topK)
			if err != nil {
				return err
			}
			return printJSON(cmd, terms)
		}),
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 1, "number of search hits per name")
	return cmd
}

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <csv> <parquet>",
		Short: "Convert a CSV sample file to Parquet",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			n, err := dataset.ConvertCSV(cmd.Context(), a.store, args[0], args[1])
			if err != nil {
				return err
			}
			a.log.Info().Int("rows", n).Str("path", args[1]).Msg("Converted dataset")
			return nil
		}),
	}
}
