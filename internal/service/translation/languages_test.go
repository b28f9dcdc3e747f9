package translation

import "testing"

func TestLanguages(t *testing.T) {
	langs := Languages()
	if len(langs) != 18 {
		t.Fatalf("expected 18 languages, got %d", len(langs))
	}

	byCode := map[string]Language{}
	for i, l := range langs {
		if i > 0 && langs[i-1].Code >= l.Code {
			t.Errorf("languages not sorted at %s", l.Code)
		}
		byCode[l.Code] = l
	}

	tests := []struct {
		code    string
		name    string
		tag     string
		phrases bool
	}{
		{"es", "Spanish", "[ES] ", true},
		{"de", "German", "[DE] ", true},
		{"hi", "Hindi", "[HI] ", true},
		{"ja", "Japanese", "[JA] ", false},
	}
	for _, tt := range tests {
		l, ok := byCode[tt.code]
		if !ok {
			t.Errorf("missing %s", tt.code)
			continue
		}
		if l.Name != tt.name || l.Tag != tt.tag || l.Phrases != tt.phrases {
			t.Errorf("unexpected entry %+v", l)
		}
	}
}

func TestDictionaryPairs(t *testing.T) {
	pairs := DictionaryPairs()
	want := []string{"en-de", "en-es", "en-fr", "en-hi"}
	if len(pairs) != len(want) {
		t.Fatalf("expected %v, got %v", want, pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d: expected %s, got %s", i, want[i], pairs[i])
		}
	}
	for _, p := range pairs {
		if n := len(phrases[p]); n != 17 {
			t.Errorf("%s: expected 17 phrases, got %d", p, n)
		}
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
		ok   bool
	}{
		{"single segment", []any{[]any{[]any{"hola", "hello"}}}, "hola", true},
		{"joined segments", []any{[]any{[]any{"a "}, []any{"b"}}}, "a b", true},
		{"non-array entry adds nothing", []any{[]any{[]any{"a"}, "junk", []any{}, []any{"c"}}}, "ac", true},
		{"null element", []any{[]any{[]any{"a"}, []any{nil}}}, "a", true},
		{"not an array", map[string]any{}, "", false},
		{"empty body", []any{}, "", false},
		{"first not array", []any{"x"}, "", false},
		{"first segment not array", []any{[]any{"x"}}, "", false},
		{"first segment empty", []any{[]any{[]any{}}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseResponse(tt.data)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseResponse = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		text, src, tgt string
		want, source   string
	}{
		{"hello", "en", "es", "hola", SourceDictionary},
		{"HELLO", "auto", "hi", "नमस्ते", SourceDictionary},
		{"Where is the bathroom?", "en", "de", "wo ist das badezimmer?", SourceDictionary},
		{"xyz", "en", "no", "[NO] xyz", SourceSynthetic},
		{"xyz", "de", "en", "[TRANSLATED] xyz", SourceSynthetic},
	}

	for _, tt := range tests {
		got, source := fallback(tt.text, tt.src, tt.tgt)
		if got != tt.want || source != tt.source {
			t.Errorf("fallback(%q, %s, %s) = %q, %s; want %q, %s", tt.text, tt.src, tt.tgt, got, source, tt.want, tt.source)
		}
	}
}
