package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"soarbench.org/soar/logger"
)

const DefaultPath = "env.toml"

type token struct {
	Token string `toml:"token"`
}

// Secrets mirrors env.toml:
//
//	[bioportal]
//	token = "..."
//	[project]
//	path = "..."
type Secrets struct {
	BioPortal   token `toml:"bioportal"`
	OpenAI      token `toml:"openai"`
	HuggingFace token `toml:"huggingface"`
	Project     struct {
		Path string `toml:"path"`
	} `toml:"project"`
}

type overrides struct {
	BioPortal   string `envconfig:"SOAR_BIOPORTAL_TOKEN"`
	OpenAI      string `envconfig:"SOAR_OPENAI_TOKEN"`
	HuggingFace string `envconfig:"SOAR_HUGGINGFACE_TOKEN"`
	ProjectPath string `envconfig:"SOAR_PROJECT_PATH"`
}

func (s *Secrets) BioPortalToken() string   { return s.BioPortal.Token }
func (s *Secrets) OpenAIToken() string      { return s.OpenAI.Token }
func (s *Secrets) HuggingFaceToken() string { return s.HuggingFace.Token }
func (s *Secrets) ProjectPath() string      { return s.Project.Path }

// Load reads a .env file into the environment if one exists, then the toml
// file at path. A missing toml file is not an error. Non-empty SOAR_* token
// variables win over the file.
func Load(path string) (*Secrets, error) {
	log := logger.NewLogger("Secrets")
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env")
	}

	secrets := &Secrets{}
	if _, err := toml.DecodeFile(path, secrets); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("No secrets file")
	}

	var env overrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	setIfNotEmpty(&secrets.BioPortal.Token, env.BioPortal)
	setIfNotEmpty(&secrets.OpenAI.Token, env.OpenAI)
	setIfNotEmpty(&secrets.HuggingFace.Token, env.HuggingFace)
	setIfNotEmpty(&secrets.Project.Path, env.ProjectPath)
	return secrets, nil
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
