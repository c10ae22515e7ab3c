package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/core/llm"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Chat(ctx context.Context, messages []llm.Message) (string, *llm.LLMCallStats, error) {
	args := m.Called(ctx, messages)
	stats, _ := args.Get(1).(*llm.LLMCallStats)
	return args.String(0), stats, args.Error(2)
}

func (m *mockLLM) Warmup(context.Context) {}

func TestLooksNative(t *testing.T) {
	testCases := []struct {
		name           string
		text           string
		native, target string
		want           bool
	}{
		{name: "turkish letters", text: "Bugün hava çok güzel", native: "TR", target: "EN", want: true},
		{name: "turkish words", text: "bu bir test", native: "tr", target: "en", want: true},
		{name: "english with o", text: "I go to school on foot", native: "tr", target: "en", want: false},
		{name: "spanish punctuation", text: "¿Dónde está?", native: "es", target: "en", want: true},
		{name: "single shared word", text: "I ate chili con carne", native: "es", target: "en", want: false},
		{name: "two spanish words", text: "quiero ir con mi madre para comer", native: "es", target: "en", want: true},
		{name: "unsupported native", text: "Привет", native: "ru", target: "en", want: false},
		{name: "non english target", text: "bu bir test", native: "tr", target: "de", want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LooksNative(tc.text, tc.native, tc.target))
		})
	}
}

func TestLLMTranslator_Translate(t *testing.T) {
	ctx := context.Background()

	t.Run("asks the model and trims", func(t *testing.T) {
		svc := new(mockLLM)
		svc.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
			return len(msgs) == 2 &&
				msgs[0].Role == "system" &&
				msgs[1].Content == "bu bir test" &&
				strings.Contains(msgs[0].Content, "from Turkish to English")
		})).Return("  \"this is a test\" \n", &llm.LLMCallStats{TotalDurationMs: 5}, nil).Once()

		out, err := NewLLMTranslator(svc, 0, nil).Translate(ctx, "bu bir test", "tr", "en")
		require.NoError(t, err)
		assert.Equal(t, "this is a test", out)
		svc.AssertExpectations(t)
	})

	t.Run("model failure", func(t *testing.T) {
		svc := new(mockLLM)
		svc.On("Chat", mock.Anything, mock.Anything).Return("", nil, errors.New("boom"))
		_, err := NewLLMTranslator(svc, 0, nil).Translate(ctx, "bu bir test", "tr", "en")
		assert.Error(t, err)
	})

	t.Run("empty answer", func(t *testing.T) {
		svc := new(mockLLM)
		svc.On("Chat", mock.Anything, mock.Anything).Return("   ", nil, nil)
		_, err := NewLLMTranslator(svc, 0, nil).Translate(ctx, "bu bir test", "tr", "en")
		assert.ErrorIs(t, err, ErrEmptyTranslation)
	})

	t.Run("empty input skips the model", func(t *testing.T) {
		svc := new(mockLLM)
		_, err := NewLLMTranslator(svc, 0, nil).Translate(ctx, "  ", "tr", "en")
		assert.ErrorIs(t, err, ErrEmptyText)
		svc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	})

	t.Run("rate limit honours context", func(t *testing.T) {
		svc := new(mockLLM)
		svc.On("Chat", mock.Anything, mock.Anything).Return("ok", nil, nil).Once()
		tr := NewLLMTranslator(svc, 0.001, nil)

		_, err := tr.Translate(ctx, "bir", "tr", "en")
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = tr.Translate(short, "bir", "tr", "en")
		assert.Error(t, err, "second call must wait far longer than the deadline")
		svc.AssertNumberOfCalls(t, "Chat", 1)
	})
}

func TestLLMTranslator_IsNative(t *testing.T) {
	ok, err := NewLLMTranslator(nil, 0, nil).IsNative(context.Background(), "Merhaba, nasılsın?", "tr", "en")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Turkish", LanguageName("TR"))
	assert.Equal(t, "XX", LanguageName("xx"))
}
