package translate

import (
	"strings"
	"unicode"
)

// indicators are characters and short function words that rarely occur in
// English text. A word hit needs company: one shared word such as "con" is
// not enough.
type indicators struct {
	runes string
	words map[string]struct{}
}

var nativeIndicators = map[string]indicators{
	"tr": {runes: "ğşçıöüİ", words: wordSet("ve", "bir", "bu", "şu", "ben", "sen", "için", "ile", "değil", "çok", "ama")},
	"es": {runes: "ñ¿¡áéíóú", words: wordSet("que", "con", "por", "para", "una", "uno", "el", "los", "las", "es", "pero", "muy")},
	"de": {runes: "äöüß", words: wordSet("und", "ich", "nicht", "ist", "das", "der", "die", "mit", "sehr", "aber")},
	"fr": {runes: "àâçéèêëîïôûœ", words: wordSet("je", "et", "est", "les", "des", "une", "avec", "pour", "mais", "très")},
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// LooksNative reports whether text appears to be written in the native
// language rather than English. Only English targets are recognised;
// other pairs report false.
func LooksNative(text, native, target string) bool {
	if !strings.EqualFold(target, "en") {
		return false
	}
	ind, ok := nativeIndicators[strings.ToLower(native)]
	if !ok {
		return false
	}
	lower := strings.ToLower(text)
	if strings.ContainsAny(lower, strings.ToLower(ind.runes)) {
		return true
	}

	hits := 0
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if _, ok := ind.words[w]; ok {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}
