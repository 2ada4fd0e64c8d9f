package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Translator converts finished answers into the session language. Callers
// treat failure as soft: the untranslated text is always a valid fallback.
type Translator interface {
	Translate(ctx context.Context, text string, targetLang string) (string, error)
}

const sourceLang = "eng_Latn"

// floresCodes maps the short language codes carried on sessions to the
// FLORES-200 codes the translation server speaks.
var floresCodes = map[string]string{
	"en": "eng_Latn",
	"hi": "hin_Deva",
	"bn": "ben_Beng",
	"ta": "tam_Taml",
	"te": "tel_Telu",
	"mr": "mar_Deva",
	"gu": "guj_Gujr",
	"kn": "kan_Knda",
	"ml": "mal_Mlym",
	"pa": "pan_Guru",
	"ur": "urd_Arab",
	"or": "ory_Orya",
	"as": "asm_Beng",
}

// FloresCode resolves a session language to its FLORES-200 code. Codes that
// already carry a script suffix pass through; the server falls back to
// English for anything it does not know.
func FloresCode(lang string) string {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if code, ok := floresCodes[lang]; ok {
		return code
	}
	if strings.Contains(lang, "_") {
		return lang
	}
	return lang
}

var sentenceBreak = regexp.MustCompile(`([.!?])\s+`)

// splitUnits cuts text into independent translation units. One line is one
// unit; single-line input falls back to sentence boundaries. The model's
// quality drops sharply past a few hundred characters, so whole answers never
// go over the wire in one piece.
func splitUnits(text string) []string {
	if strings.Contains(text, "\n") {
		var units []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				units = append(units, line)
			}
		}
		if len(units) > 0 {
			return units
		}
	}

	var units []string
	for _, sentence := range strings.Split(sentenceBreak.ReplaceAllString(text, "$1\n"), "\n") {
		if sentence = strings.TrimSpace(sentence); sentence != "" {
			units = append(units, sentence)
		}
	}
	if len(units) == 0 {
		return []string{text}
	}
	return units
}

type translateRequest struct {
	Text    string `json:"text"`
	SrcLang string `json:"src_lang"`
	TgtLang string `json:"tgt_lang"`
}

type translateResponse struct {
	Success    bool   `json:"success"`
	Translated string `json:"translated"`
	Error      string `json:"error"`
}

// HTTPTranslator talks to the NLLB translation server. Markdown is stripped
// and glossary terms are locked before the round trip; a unit that fails to
// translate keeps its English text so one bad sentence never sinks the
// answer.
type HTTPTranslator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTranslator(baseURL string, timeout time.Duration) *HTTPTranslator {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTranslator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	tgtLang := FloresCode(targetLang)
	if tgtLang == "" || tgtLang == sourceLang {
		return text, nil
	}

	clean := StripMarkdown(text)
	if clean == "" {
		return text, nil
	}

	termMap := map[string]string{}
	if glossaryTarget(tgtLang) {
		clean, termMap = lockTerms(clean)
	}

	units := splitUnits(clean)
	translated := make([]string, 0, len(units))
	failures := 0

	for _, unit := range units {
		out, err := t.translateUnit(ctx, unit, tgtLang)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Keep the unit untranslated and move on; the final restore
			// pass swaps its placeholders too, so nothing leaks.
			translated = append(translated, unit)
			failures++
			continue
		}
		translated = append(translated, out)
	}

	if failures == len(units) {
		return "", fmt.Errorf("translation to %s failed for all %d units", tgtLang, len(units))
	}

	return restoreTerms(strings.Join(translated, " "), termMap), nil
}

func (t *HTTPTranslator) translateUnit(ctx context.Context, text string, tgtLang string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Text:    text,
		SrcLang: sourceLang,
		TgtLang: tgtLang,
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/translate", t.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation server error: %s", string(body))
	}

	var result translateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("translation failed: %s", result.Error)
	}
	if strings.TrimSpace(result.Translated) == "" {
		return "", fmt.Errorf("translation returned empty result")
	}

	return result.Translated, nil
}
