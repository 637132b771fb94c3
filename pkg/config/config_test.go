package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinIsValid(t *testing.T) {
	cfg := Builtin()
	cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.Retrieval.Addr = "localhost:6334"
	cfg.Retrieval.CollectionName = "recipes"
	cfg.Database.Host = "localhost"
	cfg.Database.Database = "sous"

	assert.NoError(t, validate(cfg))
}

func TestValidateReportsMissingFields(t *testing.T) {
	cfg := Builtin()

	err := validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidateRejectsProgressIntervalNotShorterThanDeadline(t *testing.T) {
	cfg := Builtin()
	cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.Retrieval.Addr = "localhost:6334"
	cfg.Retrieval.CollectionName = "recipes"
	cfg.Database.Host = "localhost"
	cfg.Database.Database = "sous"
	cfg.Pipeline.ProgressInterval = cfg.Pipeline.RequestDeadline

	err := validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadMergesUserConfigOverBuiltins(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
llm:
  api_key_env: OPENAI_API_KEY
  model: gpt-4o-mini
retrieval:
  addr: localhost:6334
  collection_name: recipes
database:
  host: db.internal
  database: sous
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sous.yaml"), []byte(yamlContent), 0o600))

	cfg, err := load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	// builtin default survives when not overridden
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestLoadWithoutFileUsesBuiltins(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load(dir)
	require.NoError(t, err)
	assert.Equal(t, Builtin().Pipeline.RequestDeadline, cfg.Pipeline.RequestDeadline)
}

func TestExpandEnvSubstitutesVariables(t *testing.T) {
	t.Setenv("SOUS_TEST_VAR", "expanded")
	out := ExpandEnv([]byte("value: ${SOUS_TEST_VAR}"))
	assert.Equal(t, "value: expanded", string(out))
}
