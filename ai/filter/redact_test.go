package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	r := Default()
	testCases := []struct {
		name string
		text string
		want string
	}{
		{"email keeps domain", "write me at john.doe@example.com", "write me at jo**.*oe@example.com"},
		{"short local part", "ann@mail.com", "***@mail.com"},
		{"card with spaces", "card 4111 1111 1111 1111 thanks", "card 41** **** **** **11 thanks"},
		{"ip address", "from 192.168.1.10 today", "from 19*.***.*.10 today"},
		{"international phone", "call +44 20 7946 0958", "call +4* ** **** **58"},
		{"no personal data", "I have 3 cats and 12 dogs", "I have 3 cats and 12 dogs"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Redact(tc.text))
		})
	}
}

func TestFindMatches_NoOverlap(t *testing.T) {
	matches := Default().FindMatches("card 4111 1111 1111 1111, mail a.b@c.io")
	require.Len(t, matches, 2)
	assert.Equal(t, Card, matches[0].Kind)
	assert.Equal(t, Email, matches[1].Kind)
	assert.Less(t, matches[0].End, matches[1].Start)
}

func TestPreview(t *testing.T) {
	r := Default()
	assert.Equal(t, "my email is ***@mail...", r.Preview("my email is ann@mail.com and I like tea", 20))
	assert.Equal(t, "hello", r.Preview("hello", 10))
	assert.Equal(t, "çok g...", r.Preview("çok güzel bir gün", 5))
	assert.Empty(t, r.Preview("", 5))
	assert.Empty(t, r.Preview("hi", 0))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "email", Email.String())
	assert.Equal(t, "card", Card.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
