package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/codcoz/chefia/agent/contract"
	openrouterx "github.com/codcoz/chefia/pkg/openrouter"
)

// Stage names the three model-backed roles. The router runs cold so the
// classification is as deterministic as the provider allows; specialists run
// warmer for phrasing.
type Stage string

const (
	StageRouter   Stage = "router"
	StageReceitas Stage = "receitas"
	StageTarefas  Stage = "tarefas"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel         string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	ReceitasModel       string  `envconfig:"RECEITAS_MODEL" split_words:"true"`
	TarefasModel        string  `envconfig:"TAREFAS_MODEL" split_words:"true"`
	RouterTemperature   float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	ReceitasTemperature float32 `envconfig:"RECEITAS_TEMPERATURE" split_words:"true" default:"-1"`
	TarefasTemperature  float32 `envconfig:"TAREFAS_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(stage Stage) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch stage {
	case StageRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case StageReceitas:
		if v := strings.TrimSpace(c.ReceitasModel); v != "" {
			modelName = v
		}
		if c.ReceitasTemperature >= 0 {
			temp = c.ReceitasTemperature
		}
	case StageTarefas:
		if v := strings.TrimSpace(c.TarefasModel); v != "" {
			modelName = v
		}
		if c.TarefasTemperature >= 0 {
			temp = c.TarefasTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
