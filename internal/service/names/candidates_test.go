package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesTemplateOrder(t *testing.T) {
	got := Candidates("max", "mustermann", "firma.de", DefaultTemplates)

	require.Len(t, got, 9)
	assert.Equal(t, []string{
		"max@firma.de",
		"max.mustermann@firma.de",
		"m.mustermann@firma.de",
		"mustermann@firma.de",
		"maxmustermann@firma.de",
		"mmustermann@firma.de",
		"max-mustermann@firma.de",
		"max_mustermann@firma.de",
		"mustermann.max@firma.de",
	}, got)
}

func TestCandidatesMissingParts(t *testing.T) {
	assert.Empty(t, Candidates("", "mustermann", "firma.de", nil))
	assert.Empty(t, Candidates("max", "", "firma.de", nil))
	assert.Empty(t, Candidates("max", "mustermann", "", nil))
}

func TestCandidatesDeduplicatesAndCaps(t *testing.T) {
	templates := []string{"{f}", "{f}", "{l}"}
	assert.Equal(t, []string{"a@x.de", "b@x.de"}, Candidates("a", "b", "x.de", templates))

	many := append(append([]string{}, DefaultTemplates...), "{l}{f}", "{l}-{f}")
	assert.Len(t, Candidates("max", "mustermann", "firma.de", many), MaxCandidates)
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "anna.schmidt@schmidt-consulting.de", Address(FirstDotLast, "anna", "schmidt", "Schmidt-Consulting.de"))
	assert.Equal(t, "", Address(FirstDotLast, "anna", "", "x.de"))
}
