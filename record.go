package stellartrace

import "encoding/json"

// record is the subset of a scholarly-record JSON object this engine
// reads. Fields are tolerated as missing (spec §6): a zero value is used
// and simply contributes no tokens.
type record struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract"`
	Submitter     string     `json:"submitter"`
	AuthorsParsed [][]string `json:"authors_parsed"`
}

// authorTokens renders one parsed author entry as field text
// ("first last suffix?"), matching the original Lexicon.hpp's
// firstName+" "+lastName(+" "+suffix) concatenation.
func authorTokens(entry []string) string {
	if len(entry) < 2 {
		return ""
	}
	last, first := entry[0], entry[1]
	text := first + " " + last
	if len(entry) >= 3 && entry[2] != "" {
		text += " " + entry[2]
	}
	return text
}

// fieldText concatenates every text field of the record for lexicon
// building, where only the set of distinct words matters and not their
// field provenance.
func (r *record) fieldText() string {
	text := r.Title + " " + r.Abstract + " " + r.Submitter
	for _, a := range r.AuthorsParsed {
		text += " " + authorTokens(a)
	}
	return text
}

// fieldTagged is one token tagged with the field it was extracted from.
type fieldTagged struct {
	token string
	field Field
}

// taggedTokens tokenizes each field separately and tags every token with
// its originating Field, per spec §4.4: abstract=0, title=1,
// authors/submitter=2.
func (r *record) taggedTokens() []fieldTagged {
	var out []fieldTagged
	for _, tok := range Tokenize(r.Abstract) {
		out = append(out, fieldTagged{token: tok, field: FieldAbstract})
	}
	for _, tok := range Tokenize(r.Title) {
		out = append(out, fieldTagged{token: tok, field: FieldTitle})
	}
	for _, tok := range Tokenize(r.Submitter) {
		out = append(out, fieldTagged{token: tok, field: FieldAuthor})
	}
	for _, a := range r.AuthorsParsed {
		for _, tok := range Tokenize(authorTokens(a)) {
			out = append(out, fieldTagged{token: tok, field: FieldAuthor})
		}
	}
	return out
}

// parseRecord decodes one corpus line into a record, tolerating
// type-mismatched fields the way original_source/ForwardIndex.hpp's field
// getters do (`j.is_string() ? j.get<std::string>() : ""`): a field whose
// JSON type doesn't match what's expected degrades to its zero value and
// the rest of the record still contributes its tokens. Only a JSON
// syntax error drops the whole line (spec §4.4), matching the original's
// `catch(...) continue`.
func parseRecord(line []byte) (*record, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}
	return recordFromMap(raw), nil
}

// recordFromMap adapts a decoded JSON document (a build-time corpus line
// or a raw POST /adddoc body) into a record, pulling out only the fields
// it recognizes and leaving anything mistyped or missing at its zero
// value (spec §6).
func recordFromMap(doc map[string]any) *record {
	r := &record{
		ID:        stringField(doc, "id"),
		Title:     stringField(doc, "title"),
		Abstract:  stringField(doc, "abstract"),
		Submitter: stringField(doc, "submitter"),
	}
	if raw, ok := doc["authors_parsed"].([]any); ok {
		for _, entryRaw := range raw {
			entry, ok := entryRaw.([]any)
			if !ok {
				continue
			}
			var parts []string
			for _, v := range entry {
				s, ok := v.(string)
				if !ok {
					parts = nil
					break
				}
				parts = append(parts, s)
			}
			if parts != nil {
				r.AuthorsParsed = append(r.AuthorsParsed, parts)
			}
		}
	}
	return r
}

// stringField extracts a string field, degrading to "" on any missing or
// type-mismatched value instead of failing the whole record.
func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
