package ingest

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Line shapes that count toward CSV-likeness. Each needs at least one
// separator between non-empty fields.
var csvLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[^,\n]+(?:,[^,\n]+)+$`),
	regexp.MustCompile(`^[^\t\n]+(?:\t[^\t\n]+)+$`),
	regexp.MustCompile(`^[^;\n]+(?:;[^;\n]+)+$`),
}

var delimiterCandidates = []rune{',', '\t', ';', '|'}

// Classify guesses the format of raw. JSON wins over CSV whenever the whole
// input parses as an array or object.
func Classify(raw string, opts Options) FormatGuess {
	opts = opts.WithDefaults()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FormatGuess{Kind: KindUnstructured, Confidence: 0}
	}
	lines := strings.Split(trimmed, "\n")

	csvConfidence := csvLikeness(lines, opts.CSVSampleLines)
	jsonConfidence := jsonLikeness(trimmed)

	switch {
	case jsonConfidence > opts.JSONThreshold:
		return FormatGuess{Kind: KindJSON, Confidence: jsonConfidence}
	case csvConfidence > opts.CSVThreshold:
		return FormatGuess{
			Kind:       KindCSV,
			Confidence: csvConfidence,
			Delimiter:  DetectDelimiter(raw, opts.DelimiterSampleLines),
		}
	default:
		return FormatGuess{
			Kind:       KindUnstructured,
			Confidence: 1 - max(csvConfidence, jsonConfidence),
		}
	}
}

func csvLikeness(lines []string, sample int) float64 {
	n := min(len(lines), sample)
	if n == 0 {
		return 0
	}
	matched := 0
	for _, line := range lines[:n] {
		line = strings.TrimSpace(line)
		for _, pattern := range csvLinePatterns {
			if pattern.MatchString(line) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(n)
}

// jsonLikeness is binary: 1 for a well-formed array or object, 0 otherwise.
func jsonLikeness(trimmed string) float64 {
	shaped := (strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) ||
		(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"))
	if shaped && json.Valid([]byte(trimmed)) {
		return 1
	}
	return 0
}

// DetectDelimiter counts each candidate across the first sampleLines lines
// and returns the most frequent one. Ties go to the earlier candidate, so a
// sample without any candidate yields a comma.
func DetectDelimiter(raw string, sampleLines int) rune {
	if sampleLines <= 0 {
		sampleLines = defaultDelimiterSampleLines
	}
	lines := strings.Split(raw, "\n")
	if len(lines) > sampleLines {
		lines = lines[:sampleLines]
	}
	best, bestCount := delimiterCandidates[0], -1
	for _, candidate := range delimiterCandidates {
		count := 0
		for _, line := range lines {
			count += strings.Count(line, string(candidate))
		}
		if count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}
