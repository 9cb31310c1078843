package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/peachbot/peachbot/pkg/log"
)

// GLMConfig configures the Zhipu (GLM) OpenAI-compatible endpoint. A missing
// key fails at startup, not at the first call.
type GLMConfig struct {
	APIKey         string `env:"GLM_API_KEY,required,notEmpty"`
	Model          string `env:"GLM_MODEL" envDefault:"glm-4-flash"`
	EmbeddingModel string `env:"GLM_EMBEDDING_MODEL" envDefault:"embedding-3"`
	BaseURL        string `env:"GLM_BASE_URL" envDefault:"https://open.bigmodel.cn/api/paas/v4"`
}

func NewGLMConfig(ctx context.Context) *GLMConfig {
	c := &GLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse GLM config")
	}
	return c
}
