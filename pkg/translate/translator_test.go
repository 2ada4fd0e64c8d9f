package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFloresCode(t *testing.T) {
	assert.Equal(t, "eng_Latn", FloresCode("en"))
	assert.Equal(t, "hin_Deva", FloresCode("hi"))
	assert.Equal(t, "hin_Deva", FloresCode(" HI "))
	assert.Equal(t, "tam_Taml", FloresCode("ta"))
	// Codes with a script suffix pass through untouched.
	assert.Equal(t, "spa_latn", FloresCode("spa_Latn"))
	// Unknown short codes pass through for the server to reject.
	assert.Equal(t, "xx", FloresCode("xx"))
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"header", "## Photosynthesis\nPlants make food.", "Photosynthesis\nPlants make food."},
		{"bold and italic", "This is **very** *important*.", "This is very important."},
		{"underscore emphasis", "__bold__ and _italic_", "bold and italic"},
		{"horizontal rule", "before\n---\nafter", "before\n\nafter"},
		{"inline code", "run `go test` now", "run go test now"},
		{"code block keeps contents", "```python\nprint(1)\n```", "print(1)"},
		{"link keeps label", "see [the docs](https://example.com) here", "see the docs here"},
		{"blank runs collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"plain text unchanged", "nothing fancy here", "nothing fancy here"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestSplitUnits(t *testing.T) {
	multiline := splitUnits("First line.\n\nSecond line.\nThird line.")
	assert.Equal(t, []string{"First line.", "Second line.", "Third line."}, multiline)

	sentences := splitUnits("Water boils at 100 degrees. Ice melts at zero. Simple!")
	assert.Equal(t, []string{"Water boils at 100 degrees.", "Ice melts at zero.", "Simple!"}, sentences)

	single := splitUnits("no terminal punctuation at all")
	assert.Equal(t, []string{"no terminal punctuation at all"}, single)
}

func TestLockAndRestoreTerms(t *testing.T) {
	locked, termMap := lockTerms("Photosynthesis needs carbon dioxide and light.")

	assert.NotContains(t, strings.ToLower(locked), "photosynthesis")
	assert.NotContains(t, strings.ToLower(locked), "carbon dioxide")
	assert.Len(t, termMap, 3)

	restored := restoreTerms(locked, termMap)
	assert.Contains(t, restored, "प्रकाश संश्लेषण")
	assert.Contains(t, restored, "कार्बन डाइऑक्साइड")
	assert.Contains(t, restored, "प्रकाश")
	assert.NotContains(t, restored, "SCI")
}

func TestLockTermsLongestFirst(t *testing.T) {
	// "triangle" must lock as one unit; "angle" only matches the
	// remaining standalone occurrence.
	locked, termMap := lockTerms("A triangle has three angles")

	assert.NotContains(t, strings.ToLower(locked), "triangle")
	restored := restoreTerms(locked, termMap)
	assert.Contains(t, restored, "त्रिभुज")
	assert.Contains(t, restored, "कोण")
}

func TestRestoreTermsLeavesUnknownPlaceholders(t *testing.T) {
	out := restoreTerms("SCI0 then SCI7 stays", map[string]string{"SCI0": "ऊर्जा"})
	assert.Equal(t, "ऊर्जा then SCI7 stays", out)

	// A mangled placeholder is not a placeholder.
	out = restoreTerms("SCI 0 intact", map[string]string{"SCI0": "ऊर्जा"})
	assert.Equal(t, "SCI 0 intact", out)
}

type translateServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []translateRequest
	respond  func(req translateRequest) translateResponse
}

func newTranslateServer(t *testing.T, respond func(req translateRequest) translateResponse) *translateServer {
	ts := &translateServer{respond: respond}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)

		var req translateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ts.mu.Lock()
		ts.requests = append(ts.requests, req)
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ts.respond(req))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *translateServer) seen() []translateRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]translateRequest(nil), ts.requests...)
}

func TestTranslateEnglishPassthrough(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		t.Error("english target must not reach the server")
		return translateResponse{}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	out, err := tr.Translate(context.Background(), "stay as you are", "en")
	assert.NoError(t, err)
	assert.Equal(t, "stay as you are", out)
	assert.Empty(t, server.seen())
}

func TestTranslateUnits(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		return translateResponse{Success: true, Translated: "[" + req.Text + "]"}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	out, err := tr.Translate(context.Background(), "First line.\nSecond line.", "ta")
	assert.NoError(t, err)
	assert.Equal(t, "[First line.] [Second line.]", out)

	seen := server.seen()
	assert.Len(t, seen, 2)
	assert.Equal(t, "eng_Latn", seen[0].SrcLang)
	assert.Equal(t, "tam_Taml", seen[0].TgtLang)
}

func TestTranslateLocksGlossaryForHindi(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		return translateResponse{Success: true, Translated: req.Text}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	out, err := tr.Translate(context.Background(), "Photosynthesis makes glucose.", "hi")
	assert.NoError(t, err)
	assert.Contains(t, out, "प्रकाश संश्लेषण")
	assert.Contains(t, out, "ग्लूकोज")

	// The glossary terms never went over the wire.
	seen := server.seen()
	assert.Len(t, seen, 1)
	assert.NotContains(t, strings.ToLower(seen[0].Text), "photosynthesis")
	assert.Contains(t, seen[0].Text, "SCI0")
}

func TestTranslateKeepsFailedUnits(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		if strings.HasPrefix(req.Text, "First") {
			return translateResponse{Success: false, Error: "model busy"}
		}
		return translateResponse{Success: true, Translated: "translated second"}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	out, err := tr.Translate(context.Background(), "First line.\nSecond line.", "bn")
	assert.NoError(t, err)
	assert.Equal(t, "First line. translated second", out)
}

func TestTranslateAllUnitsFailed(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		return translateResponse{Success: false, Error: "down"}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	_, err := tr.Translate(context.Background(), "First line.\nSecond line.", "bn")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed for all 2 units")
}

func TestTranslateCancelledContext(t *testing.T) {
	server := newTranslateServer(t, func(req translateRequest) translateResponse {
		return translateResponse{Success: true, Translated: "never seen"}
	})
	tr := NewHTTPTranslator(server.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Translate(ctx, "First line.\nSecond line.", "bn")
	assert.ErrorIs(t, err, context.Canceled)
}
