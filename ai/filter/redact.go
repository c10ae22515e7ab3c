// Package filter masks personal data in learner text before it is logged.
package filter

import (
	"regexp"
	"sort"
	"sync"
)

// Kind is a category of personal data.
type Kind int

const (
	Email Kind = iota
	Phone
	Card
	IP
)

func (k Kind) String() string {
	switch k {
	case Email:
		return "email"
	case Phone:
		return "phone"
	case Card:
		return "card"
	case IP:
		return "ip"
	default:
		return "unknown"
	}
}

var (
	emailPattern = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
	})

	// phonePattern matches international and local numbers of 9 to 15 digits,
	// optionally grouped by spaces or dashes.
	phonePattern = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`(?:\+\d{1,3}[ -]?)?\(?\d{2,4}\)?[ -]?\d{3,4}[ -]?\d{3,4}\b`)
	})

	cardPattern = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)
	})

	ipPattern = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|1?\d\d?)\b`)
	})
)

// Cards are checked before phones so a long digit run is reported once.
var order = []Kind{Email, Card, IP, Phone}

func pattern(k Kind) *regexp.Regexp {
	switch k {
	case Email:
		return emailPattern()
	case Phone:
		return phonePattern()
	case Card:
		return cardPattern()
	case IP:
		return ipPattern()
	default:
		return nil
	}
}

// Match is one masked span of the input.
type Match struct {
	Kind     Kind
	Start    int
	End      int
	Replaced string
}

// Redactor masks every match except its first and last few characters.
type Redactor struct {
	MaskChar  rune
	KeepFirst int
	KeepLast  int
}

// Default keeps two leading and two trailing characters.
func Default() *Redactor {
	return &Redactor{MaskChar: '*', KeepFirst: 2, KeepLast: 2}
}

// FindMatches returns non-overlapping matches ordered by position.
func (r *Redactor) FindMatches(text string) []Match {
	var matches []Match
	taken := func(start, end int) bool {
		for _, m := range matches {
			if start < m.End && m.Start < end {
				return true
			}
		}
		return false
	}
	for _, k := range order {
		for _, loc := range pattern(k).FindAllStringIndex(text, -1) {
			if taken(loc[0], loc[1]) {
				continue
			}
			matches = append(matches, Match{
				Kind:     k,
				Start:    loc[0],
				End:      loc[1],
				Replaced: r.mask(text[loc[0]:loc[1]], k),
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

// Redact returns text with every match masked.
func (r *Redactor) Redact(text string) string {
	matches := r.FindMatches(text)
	if len(matches) == 0 {
		return text
	}
	out := make([]byte, 0, len(text))
	last := 0
	for _, m := range matches {
		out = append(out, text[last:m.Start]...)
		out = append(out, m.Replaced...)
		last = m.End
	}
	out = append(out, text[last:]...)
	return string(out)
}

// Preview redacts text and truncates it to maxRunes, appending "..." when cut.
func (r *Redactor) Preview(text string, maxRunes int) string {
	if text == "" || maxRunes <= 0 {
		return ""
	}
	runes := []rune(r.Redact(text))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes]) + "..."
}

func (r *Redactor) mask(s string, k Kind) string {
	if k == Email {
		for i, c := range s {
			if c == '@' {
				return r.maskRunes(s[:i]) + s[i:]
			}
		}
	}
	return r.maskRunes(s)
}

func (r *Redactor) maskRunes(s string) string {
	runes := []rune(s)
	if len(runes) <= r.KeepFirst+r.KeepLast {
		for i := range runes {
			runes[i] = r.MaskChar
		}
		return string(runes)
	}
	for i := r.KeepFirst; i < len(runes)-r.KeepLast; i++ {
		if runes[i] == ' ' || runes[i] == '-' || runes[i] == '.' {
			continue
		}
		runes[i] = r.MaskChar
	}
	return string(runes)
}
