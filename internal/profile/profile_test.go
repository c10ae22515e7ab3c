package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("POLYGLOT_LLM_PROVIDER", "openai")
	t.Setenv("POLYGLOT_MEMORY_PRESET", "production")
	t.Setenv("POLYGLOT_EXERCISE_CADENCE", "7")
	t.Setenv("POLYGLOT_TRANSLATE_RPS", "0.5")
	t.Setenv("POLYGLOT_MIN_SENTENCES", "not-a-number")

	p := &Profile{LLMModel: "gpt-4o"}
	p.FromEnv()

	assert.Equal(t, "openai", p.LLMProvider)
	assert.Equal(t, "gpt-4o", p.LLMModel)
	assert.Equal(t, 120, p.LLMTimeout)
	assert.Equal(t, "production", p.MemoryPreset)
	assert.Equal(t, 7, p.ExerciseCadence)
	assert.Equal(t, 3, p.MinSentences)
	assert.Equal(t, 6, p.MaxSentences)
	assert.Equal(t, "A2", p.DefaultLevel)
	assert.InDelta(t, 0.5, p.TranslateRPS, 1e-9)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		profile Profile
		wantErr bool
		check   func(t *testing.T, p *Profile)
	}{
		{
			name:    "sqlite dsn from data dir",
			profile: Profile{Mode: "dev"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "sqlite", p.Driver)
				assert.Equal(t, "polyglot_dev.db", filepath.Base(p.DSN))
			},
		},
		{
			name:    "unknown mode becomes demo",
			profile: Profile{Mode: "weird", Driver: "redis", DSN: "redis://localhost:6379/0"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "demo", p.Mode)
			},
		},
		{
			name:    "postgres requires dsn",
			profile: Profile{Mode: "prod", Driver: "postgres"},
			wantErr: true,
		},
		{
			name:    "unsupported driver",
			profile: Profile{Driver: "mysql"},
			wantErr: true,
		},
		{
			name:    "sentence bounds inverted",
			profile: Profile{Driver: "redis", DSN: "redis://x", MinSentences: 5, MaxSentences: 2},
			wantErr: true,
		},
		{
			name:    "missing data dir",
			profile: Profile{Data: filepath.Join(t.TempDir(), "missing")},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.profile
			if p.Data == "" && p.Driver == "" {
				p.Data = t.TempDir()
			}
			err := p.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.check != nil {
				tc.check(t, &p)
			}
		})
	}
}

func TestIsAIEnabled(t *testing.T) {
	assert.False(t, (&Profile{LLMProvider: "openai"}).IsAIEnabled())
	assert.True(t, (&Profile{LLMProvider: "openai", LLMAPIKey: "k"}).IsAIEnabled())
	assert.True(t, (&Profile{LLMProvider: "ollama"}).IsAIEnabled())
}
