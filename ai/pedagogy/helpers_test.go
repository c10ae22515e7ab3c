package pedagogy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/tutor"
)

func correction(t *testing.T, original, corrected, explanation string, cat tutor.Category) tutor.Correction {
	t.Helper()
	c, err := tutor.NewCorrection(original, corrected, explanation, cat)
	require.NoError(t, err)
	return c
}

func message(t *testing.T, n int, role tutor.Role, content string, corrections ...tutor.Correction) tutor.Message {
	t.Helper()
	m, err := tutor.NewMessage(tutor.MessageParams{
		ID:          fmt.Sprintf("s1-msg%d", n),
		SessionID:   "s1",
		Role:        role,
		Content:     content,
		Corrections: corrections,
	})
	require.NoError(t, err)
	return m
}

// MockTranslator is a mock implementation of Translator.
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) IsNative(ctx context.Context, text, native, target string) (bool, error) {
	args := m.Called(ctx, text, native, target)
	return args.Bool(0), args.Error(1)
}

func (m *MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	args := m.Called(ctx, text, source, target)
	return args.String(0), args.Error(1)
}

type panickingTranslator struct{}

func (panickingTranslator) IsNative(context.Context, string, string, string) (bool, error) {
	panic("detector exploded")
}

func (panickingTranslator) Translate(context.Context, string, string, string) (string, error) {
	panic("translator exploded")
}
