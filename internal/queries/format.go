package queries

import "regexp"

var languageTag = regexp.MustCompile(`^\[@(.*?)\](.*)`)

// LanguageValue is a JSON-LD style language-tagged string.
type LanguageValue struct {
	Language string `json:"@language"`
	Value    string `json:"@value"`
}

// FormatValue converts a string that starts with a language tag
// ("[@de]Wissenschaft", "[@ja-latn]kagaku") into a LanguageValue.
// Any other value is returned unmodified.
func FormatValue(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	m := languageTag.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return LanguageValue{Language: m[1], Value: m[2]}
}
