package chat

import (
	"regexp"
	"strings"

	"github.com/hrygo/polyglot/ai/tutor"
)

// correctionLineRe matches the annotation format requested in the system prompt:
//
//	Correction: <original> → <corrected> (<category>): <explanation>
var correctionLineRe = regexp.MustCompile(
	`(?im)^[\s>*-]*correction:\s*(.+?)\s*(?:→|->)\s*(.+?)\s*\(\s*([a-z]+)\s*\)\s*:\s*(.+?)\s*$`)

// ExtractCorrections parses the candidate corrections annotated in a model
// reply. Malformed or invalid lines are skipped; the reply text is left as is.
func ExtractCorrections(reply string) []tutor.Correction {
	var out []tutor.Correction
	seen := make(map[string]struct{})
	for _, m := range correctionLineRe.FindAllStringSubmatch(reply, -1) {
		category, err := tutor.ParseCategory(m[3])
		if err != nil {
			continue
		}
		c, err := tutor.NewCorrection(unquote(m[1]), unquote(m[2]), m[4], category)
		if err != nil {
			continue
		}
		key := strings.ToLower(c.Original + "\x00" + c.Correction)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'“”‘’`)
}
