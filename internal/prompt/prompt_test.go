package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_KnownCategories(t *testing.T) {
	expectedPrefix := map[string]string{
		"Career & Skills":   "You are an empathetic career coach",
		"Entrepreneurship":  "You are a supportive entrepreneurship mentor",
		"AI Projects":       "You are an AI tool advisor",
		"Mentorship":        "You are a compassionate mentor",
		"Language Learning": "You are a language learning advisor",
		"Custom Advice":     "You are a versatile AI advisor for EdSkill Hub",
	}
	require.Len(t, Categories(), len(expectedPrefix))

	seen := make(map[string]bool)
	for _, name := range Categories() {
		got := Select(name)
		assert.True(t, strings.HasPrefix(got, expectedPrefix[name]), "category %q", name)
		assert.False(t, seen[got], "instruction for %q is not unique", name)
		seen[got] = true
	}
}

func TestSelect_FallsBackToCustomAdvice(t *testing.T) {
	fallback := Select(CategoryCustomAdvice)
	for _, name := range []string{"", "Unknown Category", "entrepreneurship", " Mentorship", "AI projects"} {
		assert.Equal(t, fallback, Select(name), "category %q", name)
	}
}
