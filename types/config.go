package types

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"soarbench.org/soar/logger"
)

const (
	// generation backends
	LocalPipelineClass     = "CellTypeAnnotationPipeline"
	Cell2SentPipelineClass = "Cell2SentCellTypeAnnotationPipeline"
	ChatGPTPipelineClass   = "ChatGPTCellTypeAnnotationPipeline"

	// prompt templates
	PromptRankedGene       = "ranked_gene"
	PromptZeroShot         = "zero_shot"
	PromptZeroShotSCACT    = "zero_shot_scact"
	PromptZeroShotCoT      = "zero_shot_cot"
	PromptZeroShotCoTSCACT = "zero_shot_cot_scact"
	PromptFewShot          = "few_shot"

	// dataset formats
	DatasetFormatCSV     = "csv"
	DatasetFormatParquet = "parquet"
)

var pipelineClasses = map[string]bool{
	LocalPipelineClass:     true,
	Cell2SentPipelineClass: true,
	ChatGPTPipelineClass:   true,
}

var promptNames = map[string]bool{
	PromptRankedGene:       true,
	PromptZeroShot:         true,
	PromptZeroShotSCACT:    true,
	PromptZeroShotCoT:      true,
	PromptZeroShotCoTSCACT: true,
	PromptFewShot:          true,
}

func IsCoTPrompt(name string) bool {
	return name == PromptZeroShotCoT || name == PromptZeroShotCoTSCACT
}

type GenerationConfig struct {
	MaxNewTokens int     `yaml:"max_new_tokens" json:"max_new_tokens"`
	DoSample     bool    `yaml:"do_sample" json:"do_sample"`
	Temperature  float32 `yaml:"temperature" json:"temperature"`
	TopP         float32 `yaml:"top_p" json:"top_p"`
}

type PipelineConfig struct {
	ModelCustomID          string            `yaml:"model_custom_id" json:"model_custom_id"`
	ModelName              string            `yaml:"model_name" json:"model_name"`
	LocalCkptPath          string            `yaml:"local_ckpt_path" json:"local_ckpt_path"`
	LocalFinetunedCkptPath string            `yaml:"local_finetuned_ckpt_path" json:"local_finetuned_ckpt_path"`
	TorchDtype             string            `yaml:"torch_dtype" json:"torch_dtype"`
	DeviceMap              string            `yaml:"device_map" json:"device_map"`
	PipelineName           string            `yaml:"pipeline_name" json:"pipeline_name"`
	BatchSize              int               `yaml:"batch_size" json:"batch_size"`
	ModelKwargs            map[string]string `yaml:"model_kwargs" json:"model_kwargs"`
	TokenizerKwargs        map[string]string `yaml:"tokenizer_kwargs" json:"tokenizer_kwargs"`
	PipelineClassName      string            `yaml:"pipeline_class_name" json:"pipeline_class_name"`
	APITimeInterval        float64           `yaml:"api_time_interval" json:"api_time_interval"`

	// OpenAI compatible endpoints serving the local and fine-tuned checkpoints.
	BaseURL          string `yaml:"base_url" json:"base_url"`
	FinetunedBaseURL string `yaml:"finetuned_base_url" json:"finetuned_base_url"`

	// tokens are filled from secrets and never written to config.json
	HuggingfaceToken string `yaml:"huggingface_token" json:"-"`
	OpenAIToken      string `yaml:"openai_token" json:"-"`
}

type DatasetConfig struct {
	Format   string `yaml:"format" json:"format"`
	CSVPath  string `yaml:"csv_path" json:"csv_path"`
	Path     string `yaml:"path" json:"path"`
	DemoPath string `yaml:"demo_path" json:"demo_path"`
	UseDemo  bool   `yaml:"use_demo" json:"use_demo"`
}

// SourcePath returns the sample file, preferring the generic path over csv_path.
func (cfg DatasetConfig) SourcePath() string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return cfg.CSVPath
}

// TaskConfig describes one annotation experiment.
type TaskConfig struct {
	Name         string           `yaml:"-" json:"name"`
	FilePath     string           `yaml:"-" json:"file_path"`
	OutputFolder string           `yaml:"output_folder" json:"output_folder"`
	RandomSeed   int              `yaml:"random_seed" json:"random_seed"`
	PromterName  string           `yaml:"promter_name" json:"promter_name"`
	GeneNumLimit int              `yaml:"gene_num_limit" json:"gene_num_limit"`
	Dataset      DatasetConfig    `yaml:"dataset" json:"dataset"`
	Generation   GenerationConfig `yaml:"generation" json:"generation"`
	Pipeline     PipelineConfig   `yaml:"pipeline" json:"pipeline"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxNewTokens: 256,
		DoSample:     true,
		Temperature:  0.6,
		TopP:         0.9,
	}
}

func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		OutputFolder: "outputs/",
		RandomSeed:   2024,
		PromterName:  PromptRankedGene,
		GeneNumLimit: -1,
		Generation:   DefaultGenerationConfig(),
		Pipeline: PipelineConfig{
			TorchDtype:        "bfloat16",
			DeviceMap:         "auto",
			PipelineName:      "text-generation",
			BatchSize:         8,
			ModelKwargs:       map[string]string{},
			TokenizerKwargs:   map[string]string{},
			PipelineClassName: LocalPipelineClass,
			APITimeInterval:   1,
		},
	}
}

func (cfg TaskConfig) Validate() error {
	if cfg.Pipeline.ModelCustomID == "" {
		return fmt.Errorf("%s: pipeline.model_custom_id is required", cfg.Name)
	}
	if cfg.Pipeline.ModelName == "" {
		return fmt.Errorf("%s: pipeline.model_name is required", cfg.Name)
	}
	if !pipelineClasses[cfg.Pipeline.PipelineClassName] {
		return fmt.Errorf("%s: wrong pipeline class %q", cfg.Name, cfg.Pipeline.PipelineClassName)
	}
	if !promptNames[cfg.PromterName] {
		return fmt.Errorf("%s: invalid prompter name %q", cfg.Name, cfg.PromterName)
	}
	if cfg.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("%s: pipeline.batch_size should be positive", cfg.Name)
	}
	return nil
}

// LoadConfiguration reads one experiment file on top of the defaults.
func LoadConfiguration(filePath string) (TaskConfig, error) {
	_, fileName := path.Split(filePath)
	cfg := DefaultTaskConfig()
	cfg.Name = strings.TrimSuffix(strings.TrimSuffix(fileName, ".yaml"), ".yml")
	cfg.FilePath = filePath

	buf, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filePath, err)
	}

	return cfg, cfg.Validate()
}

// LoadConfigurations reads every yaml experiment in dirPath. Invalid files are logged and skipped.
func LoadConfigurations(dirPath string) ([]TaskConfig, error) {
	log := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan TaskConfig, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !(strings.HasSuffix(f.Name(), ".yaml") || strings.HasSuffix(f.Name(), ".yml")) {
			continue
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			cfg, err := LoadConfiguration(path.Join(dirPath, name))
			if err != nil {
				log.Err(err).Str("file", name).Msg("skipping configuration")
				return
			}
			configChan <- cfg
		}(f.Name())
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]TaskConfig, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// FindConfiguration returns the experiment with the given name.
func FindConfiguration(configs []TaskConfig, name string) (TaskConfig, bool) {
	for _, cfg := range configs {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return TaskConfig{}, false
}
