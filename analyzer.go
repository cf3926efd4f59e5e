// Package stellartrace implements a full-text search engine over a
// line-delimited JSON corpus of scholarly records: lexicon, forward index,
// and document map built offline; a disk-resident inverted index
// partitioned into barrels; a ranked query executor; and an incremental
// ingestion path.
package stellartrace

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Field tags a token occurrence by which document field it came from.
// The numeric values double as the mask retained when a word occurs in
// more than one field of the same document (the maximum wins).
type Field uint8

const (
	FieldAbstract Field = 0
	FieldTitle    Field = 1
	FieldAuthor   Field = 2
)

// AnalyzerConfig controls the tokenization pipeline. EnableStemming is an
// optional extension (see DESIGN.md) and defaults to false on both the
// build-time and query-time paths, matching the primary retrieval path's
// non-goal of stemming.
type AnalyzerConfig struct {
	EnableStemming bool
}

// DefaultConfig returns the pipeline used by the build and ingestion paths.
func DefaultConfig() AnalyzerConfig {
	return AnalyzerConfig{EnableStemming: false}
}

// QueryConfig returns the pipeline used when tokenizing an incoming query.
// Its settings are the same as DefaultConfig's; the query-time stopword
// set is chosen by TokenizeQuery, not by this config.
func QueryConfig() AnalyzerConfig {
	return AnalyzerConfig{EnableStemming: false}
}

// Tokenize normalizes text using the build-time stopword set: split,
// lowercase, drop non-letter tokens, drop build-time stopwords.
func Tokenize(text string) []string {
	return analyze(text, buildStopwords, DefaultConfig())
}

// TokenizeQuery normalizes a query string using the engine's distinct
// query-time stopword set (spec §4.7 step 1).
func TokenizeQuery(text string) []string {
	return analyze(text, queryStopwords, QueryConfig())
}

// analyze runs the shared tokenize -> lowercase -> letters-only ->
// stopword -> (optional stem) pipeline against the given stopword set.
func analyze(text string, stopwords map[string]struct{}, config AnalyzerConfig) []string {
	tokens := tokenize(text)
	tokens = lowercaseFilter(tokens)
	tokens = lettersOnlyFilter(tokens)
	tokens = stopwordFilter(tokens, stopwords)

	if config.EnableStemming {
		tokens = stemmerFilter(tokens)
	}

	return tokens
}

// tokenize splits text on any code point that is not a Unicode letter or
// number, mirroring the locale-aware case split the original C++
// implementation did with isalpha/tolower. Digits that survive this split
// are removed downstream by lettersOnlyFilter — all persistent structures
// key on alphabetic tokens only.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// lowercaseFilter normalizes token casing with strings.ToLower, i.e. the
// Unicode default case mapping; no locale-specific rules are applied.
func lowercaseFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = strings.ToLower(token)
	}
	return r
}

// lettersOnlyFilter drops any token that contains a non-letter rune after
// normalization, including tokens composed purely of digits.
func lettersOnlyFilter(tokens []string) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		allLetters := true
		for _, c := range token {
			if !unicode.IsLetter(c) {
				allLetters = false
				break
			}
		}
		if allLetters {
			r = append(r, token)
		}
	}
	return r
}

// stopwordFilter removes words present in the given closed stopword set.
func stopwordFilter(tokens []string, stopwords map[string]struct{}) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := stopwords[token]; !drop {
			r = append(r, token)
		}
	}
	return r
}

// stemmerFilter reduces tokens to their Snowball (Porter2) root form. Only
// reached when AnalyzerConfig.EnableStemming is set — see DESIGN.md for why
// this stays wired despite being off by default.
func stemmerFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = snowballeng.Stem(token, false)
	}
	return r
}

// buildStopwords is the closed, fixed stopword set applied at build time
// and during dynamic ingestion (spec §4.1). It is intentionally small and
// not configurable.
var buildStopwords = map[string]struct{}{
	"the":  {},
	"and":  {},
	"is":   {},
	"in":   {},
	"at":   {},
	"of":   {},
	"on":   {},
	"for":  {},
	"to":   {},
	"a":    {},
	"an":   {},
	"that": {},
	"it":   {},
}

// queryStopwords is the engine's query-time stopword set, distinct from
// buildStopwords by design (spec §4.7 step 1, §9 open question).
var queryStopwords = map[string]struct{}{
	"the":   {},
	"is":    {},
	"are":   {},
	"was":   {},
	"were":  {},
	"to":    {},
	"of":    {},
	"and":   {},
	"or":    {},
	"a":     {},
	"an":    {},
	"in":    {},
	"on":    {},
	"for":   {},
	"with":  {},
	"by":    {},
	"as":    {},
	"at":    {},
	"from":  {},
	"their": {},
}
