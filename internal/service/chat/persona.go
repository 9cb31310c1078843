package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peachbot/peachbot/pkg/log"
)

// Persona is a loadable character profile. RoleID also namespaces the memory
// collection so each persona remembers its own conversations.
type Persona struct {
	RoleID       string  `json:"role_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
}

const defaultTemperature = 0.8

func defaultPersona() Persona {
	return Persona{
		RoleID:       "",
		Name:         "小桃",
		Description:  "温暖贴心的陪伴型助手",
		SystemPrompt: "你是一个温暖、贴心的陪伴型 AI 助手。",
		Temperature:  defaultTemperature,
	}
}

// LoadPersonas reads every *.json profile in dir. A missing directory is not
// an error, it just means only the built-in persona is available.
func LoadPersonas(ctx context.Context, dir string) (map[string]Persona, error) {
	personas := make(map[string]Persona)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return personas, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persona dir: %w", err)
	}

	logger := log.FromCtx(ctx)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable persona")
			continue
		}

		var persona Persona
		if err := json.Unmarshal(data, &persona); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping invalid persona")
			continue
		}
		if persona.RoleID == "" {
			logger.Warn().Str("file", entry.Name()).Msg("skipping persona without role_id")
			continue
		}
		if persona.Temperature == 0 {
			persona.Temperature = defaultTemperature
		}

		personas[persona.RoleID] = persona
		logger.Debug().Str("role", persona.RoleID).Str("name", persona.Name).Msg("persona loaded")
	}
	return personas, nil
}
