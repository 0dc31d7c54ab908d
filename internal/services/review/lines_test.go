package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleFile = `import os

def load_config(path):
    with open(path) as f:
        return f.read()

API_ENDPOINT_TIMEOUT_SECONDS = 30

def retry_request(url, attempts=3):
    for i in range(attempts):
        response = fetch(url)
        if response.ok:
            return response
    return None
`

func TestLocateSnippet_Exact(t *testing.T) {
	line := locateSnippet(sampleFile, "def load_config(path):")
	assert.Equal(t, 3, line)
}

func TestLocateSnippet_ExactMultiLine(t *testing.T) {
	snippet := "def load_config(path):\n    with open(path) as f:"
	assert.Equal(t, 3, locateSnippet(sampleFile, snippet))
}

func TestLocateSnippet_FuzzyWhitespace(t *testing.T) {
	// indentation differs from the file but content overlaps heavily
	snippet := "response = fetch(url)\nif response.ok:"
	line := locateSnippet(sampleFile, snippet)
	assert.Equal(t, 11, line)
}

func TestLocateSnippet_DistinctiveSubstring(t *testing.T) {
	line := locateSnippet(sampleFile, "value = API_ENDPOINT_TIMEOUT_SECONDS * 2")
	assert.Equal(t, 7, line)
}

func TestLocateSnippet_PatternProbe(t *testing.T) {
	line := locateSnippet(sampleFile, "def retry_request was defined with a mutable default")
	assert.Equal(t, 9, line)
}

func TestLocateSnippet_NoMatch(t *testing.T) {
	assert.Equal(t, 0, locateSnippet(sampleFile, "completely_unrelated_identifier_xyz()"))
}

func TestLocateSnippet_Empty(t *testing.T) {
	assert.Equal(t, 0, locateSnippet(sampleFile, ""))
	assert.Equal(t, 0, locateSnippet("", "def x():"))
}
