package translate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// scientificGlossary fixes the Hindi rendering of technical terms. The
// translation model transliterates or mistranslates these, so they are locked
// behind placeholders for the round trip and restored afterwards.
var scientificGlossary = map[string]string{
	// Biology
	"photosynthesis": "प्रकाश संश्लेषण",
	"chlorophyll":    "क्लोरोफिल",
	"carbon dioxide": "कार्बन डाइऑक्साइड",
	"oxygen":         "ऑक्सीजन",
	"glucose":        "ग्लूकोज",
	"atp":            "एटीपी",
	"dna":            "डीएनए",
	"rna":            "आरएनए",
	"cell":           "कोशिका",
	"mitochondria":   "माइटोकॉन्ड्रिया",
	"nucleus":        "केंद्रक",
	"chromosome":     "गुणसूत्र",
	"gene":           "जीन",
	"protein":        "प्रोटीन",
	"enzyme":         "एंजाइम",
	"respiration":    "श्वसन",
	"digestion":      "पाचन",
	"metabolism":     "चयापचय",

	// Chemistry
	"molecule": "अणु",
	"atom":     "परमाणु",
	"element":  "तत्व",
	"compound": "यौगिक",
	"reaction": "अभिक्रिया",
	"catalyst": "उत्प्रेरक",
	"acid":     "अम्ल",
	"base":     "क्षार",
	"salt":     "लवण",
	"solution": "विलयन",
	"mixture":  "मिश्रण",
	"hydrogen": "हाइड्रोजन",
	"nitrogen": "नाइट्रोजन",
	"sodium":   "सोडियम",
	"calcium":  "कैल्शियम",

	// Physics
	"force":        "बल",
	"energy":       "ऊर्जा",
	"velocity":     "वेग",
	"acceleration": "त्वरण",
	"momentum":     "संवेग",
	"gravity":      "गुरुत्वाकर्षण",
	"friction":     "घर्षण",
	"pressure":     "दबाव",
	"temperature":  "तापमान",
	"heat":         "ऊष्मा",
	"light":        "प्रकाश",
	"sound":        "ध्वनि",
	"wave":         "तरंग",
	"electricity":  "विद्युत",
	"magnetism":    "चुंबकत्व",

	// Mathematics
	"equation":   "समीकरण",
	"formula":    "सूत्र",
	"variable":   "चर",
	"constant":   "अचर",
	"derivative": "अवकलज",
	"integral":   "समाकलन",
	"angle":      "कोण",
	"triangle":   "त्रिभुज",
	"circle":     "वृत्त",
	"square":     "वर्ग",
	"rectangle":  "आयत",
	"area":       "क्षेत्रफल",
	"perimeter":  "परिमाप",
	"volume":     "आयतन",

	// Common educational terms
	"definition": "परिभाषा",
	"example":    "उदाहरण",
	"concept":    "अवधारणा",
	"principle":  "सिद्धांत",
	"theory":     "सिद्धांत",
	"law":        "नियम",
	"process":    "प्रक्रिया",
	"system":     "तंत्र",
	"structure":  "संरचना",
	"function":   "कार्य",
}

// glossaryTerms is sorted longest-first so "carbon dioxide" locks before
// "carbon" could ever partially match.
var glossaryTerms = func() []string {
	terms := make([]string, 0, len(scientificGlossary))
	for term := range scientificGlossary {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	return terms
}()

var placeholderPattern = regexp.MustCompile(`SCI\d+`)

// lockTerms swaps every glossary occurrence for a tokenizer-safe placeholder
// ("SCI0", "SCI1", ...) and returns the map needed to restore them.
func lockTerms(text string) (string, map[string]string) {
	termMap := make(map[string]string)
	index := 0

	for _, term := range glossaryTerms {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		for {
			loc := pattern.FindStringIndex(text)
			if loc == nil {
				break
			}
			placeholder := fmt.Sprintf("SCI%d", index)
			termMap[placeholder] = scientificGlossary[term]
			text = text[:loc[0]] + placeholder + text[loc[1]:]
			index++
		}
	}

	return text, termMap
}

// restoreTerms replaces exact placeholder tokens only. Placeholders the model
// mangled stay as-is; guessing at partial matches corrupts otherwise good
// output.
func restoreTerms(text string, termMap map[string]string) string {
	if len(termMap) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(placeholder string) string {
		if term, ok := termMap[placeholder]; ok {
			return term
		}
		return placeholder
	})
}

// glossaryTarget reports whether term locking applies for the target
// language. The table carries Hindi renderings only.
func glossaryTarget(tgtLang string) bool {
	return strings.HasPrefix(tgtLang, "hin_")
}
