package translation

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language describes a target language known to the offline fallback.
type Language struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Native  string `json:"native"`
	Tag     string `json:"tag"`
	Phrases bool   `json:"phrases"` // an English phrase dictionary exists
}

// Languages lists the tagged target languages sorted by code.
func Languages() []Language {
	out := make([]Language, 0, len(tags))
	for code, tag := range tags {
		t := language.Make(code)
		_, hasPhrases := phrases["en-"+code]
		out = append(out, Language{
			Code:    code,
			Name:    display.English.Languages().Name(t),
			Native:  display.Self.Name(t),
			Tag:     tag,
			Phrases: hasPhrases,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// DictionaryPairs lists the language pairs with an offline phrase table.
func DictionaryPairs() []string {
	out := make([]string, 0, len(phrases))
	for k := range phrases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
