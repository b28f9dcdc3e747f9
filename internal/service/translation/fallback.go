package translation

import "strings"

// phrases is the offline dictionary keyed by "<source>-<target>", then by
// the lower-cased trimmed source phrase.
var phrases = map[string]map[string]string{
	"en-es": {
		"hello":                  "hola",
		"goodbye":                "adiós",
		"thank you":              "gracias",
		"please":                 "por favor",
		"yes":                    "sí",
		"no":                     "no",
		"good morning":           "buenos días",
		"good night":             "buenas noches",
		"how are you":            "cómo estás",
		"hello, how are you?":    "hola, ¿cómo estás?",
		"thank you very much":    "muchas gracias",
		"excuse me":              "disculpe",
		"where is the bathroom?": "¿dónde está el baño?",
		"how much does it cost?": "¿cuánto cuesta?",
		"i don't understand":     "no entiendo",
		"can you help me?":       "¿puedes ayudarme?",
		"see you later":          "hasta luego",
	},
	"en-fr": {
		"hello":                  "bonjour",
		"goodbye":                "au revoir",
		"thank you":              "merci",
		"please":                 "s'il vous plaît",
		"yes":                    "oui",
		"no":                     "non",
		"good morning":           "bonjour",
		"good night":             "bonne nuit",
		"how are you":            "comment allez-vous",
		"hello, how are you?":    "bonjour, comment allez-vous?",
		"thank you very much":    "merci beaucoup",
		"excuse me":              "excusez-moi",
		"where is the bathroom?": "où sont les toilettes?",
		"how much does it cost?": "combien ça coûte?",
		"i don't understand":     "je ne comprends pas",
		"can you help me?":       "pouvez-vous m'aider?",
		"see you later":          "à plus tard",
	},
	"en-de": {
		"hello":                  "hallo",
		"goodbye":                "auf wiedersehen",
		"thank you":              "danke",
		"please":                 "bitte",
		"yes":                    "ja",
		"no":                     "nein",
		"good morning":           "guten morgen",
		"good night":             "gute nacht",
		"how are you":            "wie geht es dir",
		"hello, how are you?":    "hallo, wie geht es dir?",
		"thank you very much":    "vielen dank",
		"excuse me":              "entschuldigung",
		"where is the bathroom?": "wo ist das badezimmer?",
		"how much does it cost?": "wie viel kostet das?",
		"i don't understand":     "ich verstehe nicht",
		"can you help me?":       "können sie mir helfen?",
		"see you later":          "bis später",
	},
	"en-hi": {
		"hello":                  "नमस्ते",
		"goodbye":                "अलविदा",
		"thank you":              "धन्यवाद",
		"please":                 "कृपया",
		"yes":                    "हाँ",
		"no":                     "नहीं",
		"good morning":           "सुप्रभात",
		"good night":             "शुभ रात्रि",
		"how are you":            "आप कैसे हैं",
		"hello, how are you?":    "नमस्ते, आप कैसे हैं?",
		"thank you very much":    "बहुत धन्यवाद",
		"excuse me":              "माफ़ कीजिये",
		"where is the bathroom?": "बाथरूम कहाँ है?",
		"how much does it cost?": "यह कितने का है?",
		"i don't understand":     "मुझे समझ नहीं आया",
		"can you help me?":       "क्या आप मेरी मदद कर सकते हैं?",
		"see you later":          "बाद में मिलते हैं",
	},
}

// tags prefixes synthetic translations per target language.
var tags = map[string]string{
	"es": "[ES] ",
	"fr": "[FR] ",
	"de": "[DE] ",
	"it": "[IT] ",
	"pt": "[PT] ",
	"ru": "[RU] ",
	"ja": "[JA] ",
	"ko": "[KO] ",
	"zh": "[ZH] ",
	"ar": "[AR] ",
	"hi": "[HI] ",
	"tr": "[TR] ",
	"nl": "[NL] ",
	"pl": "[PL] ",
	"sv": "[SV] ",
	"da": "[DA] ",
	"no": "[NO] ",
	"fi": "[FI] ",
}

const defaultTag = "[TRANSLATED] "

// Fallback sources reported in metrics and events.
const (
	SourceEndpoint   = "endpoint"
	SourceDictionary = "dictionary"
	SourceSynthetic  = "synthetic"
	SourceManual     = "manual"
)

// dictionaryKey resolves the phrase table key; "auto" is assumed English.
func dictionaryKey(sourceLang, targetLang string) string {
	if sourceLang == "auto" {
		return "en-" + targetLang
	}
	return sourceLang + "-" + targetLang
}

// fallback translates offline: a dictionary hit, else the tagged original.
func fallback(text, sourceLang, targetLang string) (string, string) {
	if table, ok := phrases[dictionaryKey(sourceLang, targetLang)]; ok {
		if t, ok := table[strings.ToLower(strings.TrimSpace(text))]; ok {
			return t, SourceDictionary
		}
	}
	return synthetic(text, targetLang), SourceSynthetic
}

func synthetic(text, targetLang string) string {
	tag, ok := tags[targetLang]
	if !ok {
		tag = defaultTag
	}
	return tag + text
}
