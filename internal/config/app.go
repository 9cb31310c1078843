package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/peachbot/peachbot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"PEACH_RUNTIME_PATH" envDefault:".peachbot"`

	// Memory lifecycle
	ExtractThreshold   int `env:"MEMORY_EXTRACT_THRESHOLD" envDefault:"5"`
	MaxContextMemories int `env:"MAX_CONTEXT_MEMORIES" envDefault:"5"`
	StoreMinImportance int `env:"STORE_MIN_IMPORTANCE" envDefault:"5"`
	// Assistant-side promises and support are worth keeping at a lower bar
	// than user facts.
	AssistantStoreMinImportance int `env:"ASSISTANT_STORE_MIN_IMPORTANCE" envDefault:"3"`
	// Injection-time retrieval uses a lower bar than storage so more context
	// surfaces in prompts than what was worth persisting on its own.
	RetrieveMinImportance int  `env:"RETRIEVE_MIN_IMPORTANCE" envDefault:"3"`
	BackgroundExtract     bool `env:"BACKGROUND_EXTRACT" envDefault:"false"`
	// The buffer historically grows forever so every extraction re-reads the
	// whole session. TrimAfterExtract opts into clearing it instead.
	TrimAfterExtract bool `env:"TRIM_AFTER_EXTRACT" envDefault:"false"`

	// Prompt budgeting
	MemoryTokenBudget int `env:"MEMORY_TOKEN_BUDGET" envDefault:"1000"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "peachbot.db")
}

func (c AppConfig) GetMemoryPath() string {
	return filepath.Join(c.RuntimePath, "memories")
}

func (c AppConfig) GetPersonaPath() string {
	return filepath.Join(c.RuntimePath, "personas")
}
