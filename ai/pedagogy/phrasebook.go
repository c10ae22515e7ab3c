package pedagogy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hrygo/polyglot/ai/format"
	"github.com/hrygo/polyglot/ai/tutor"
)

//go:embed phrasebook.yaml
var defaultPhrasebookYAML []byte

// Phrasebook holds the fixed phrase tables. Continuation and assessment
// entries may span sentences; padding entries must be single sentences.
type Phrasebook struct {
	Padding          map[string][]string `yaml:"padding"`
	Continuation     map[string][]string `yaml:"continuation"`
	Assessment       map[string][]string `yaml:"assessment"`
	AssessmentSuffix map[string]string   `yaml:"assessment_suffix"`
}

var (
	defaultPhrasebookOnce sync.Once
	defaultPhrasebook     *Phrasebook
)

// DefaultPhrasebook returns the embedded phrasebook. Callers must not modify it.
func DefaultPhrasebook() *Phrasebook {
	defaultPhrasebookOnce.Do(func() {
		pb, err := parsePhrasebook(defaultPhrasebookYAML)
		if err == nil {
			err = pb.validate()
		}
		if err != nil {
			panic(fmt.Sprintf("embedded phrasebook: %v", err))
		}
		defaultPhrasebook = pb
	})
	return defaultPhrasebook
}

// ParsePhrasebook decodes YAML. Tables missing from data are taken from the
// embedded phrasebook.
func ParsePhrasebook(data []byte) (*Phrasebook, error) {
	pb, err := parsePhrasebook(data)
	if err != nil {
		return nil, err
	}
	pb.fillFrom(DefaultPhrasebook())
	if err := pb.validate(); err != nil {
		return nil, err
	}
	return pb, nil
}

func parsePhrasebook(data []byte) (*Phrasebook, error) {
	pb := &Phrasebook{}
	if err := yaml.Unmarshal(data, pb); err != nil {
		return nil, fmt.Errorf("failed to parse phrasebook: %w", err)
	}
	return pb, nil
}

// LoadPhrasebook reads a phrasebook override from path.
func LoadPhrasebook(path string) (*Phrasebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrasebook %s: %w", path, err)
	}
	return ParsePhrasebook(data)
}

func (pb *Phrasebook) fillFrom(def *Phrasebook) {
	if len(pb.Padding) == 0 {
		pb.Padding = def.Padding
	}
	if len(pb.Continuation) == 0 {
		pb.Continuation = def.Continuation
	}
	if len(pb.Assessment) == 0 {
		pb.Assessment = def.Assessment
	}
	if len(pb.AssessmentSuffix) == 0 {
		pb.AssessmentSuffix = def.AssessmentSuffix
	}
}

func (pb *Phrasebook) validate() error {
	if len(pb.Padding[string(tutor.LevelA2)]) == 0 {
		return fmt.Errorf("phrasebook: padding table for %s is required", tutor.LevelA2)
	}
	for level, phrases := range pb.Padding {
		for _, p := range phrases {
			if n := format.CountSentences(p); n != 1 {
				return fmt.Errorf("phrasebook: padding %q for %s has %d sentences", p, level, n)
			}
		}
	}
	for _, key := range []string{"beginner", "intermediate", "advanced"} {
		if len(pb.Continuation[key]) == 0 {
			return fmt.Errorf("phrasebook: continuation table %q is required", key)
		}
	}
	for _, key := range []string{"positive", "encouraging", "coaching"} {
		if len(pb.Assessment[key]) == 0 {
			return fmt.Errorf("phrasebook: assessment table %q is required", key)
		}
	}
	return nil
}

// padding returns the table for level; levels without one use A2's.
func (pb *Phrasebook) padding(level tutor.Level) []string {
	if phrases := pb.Padding[string(level.CEFR())]; len(phrases) > 0 {
		return phrases
	}
	return pb.Padding[string(tutor.LevelA2)]
}

func (pb *Phrasebook) continuation(level tutor.Level, topic string) []string {
	key := "advanced"
	switch {
	case level.IsBeginner():
		key = "beginner"
	case level.CEFR() == tutor.LevelB1:
		key = "intermediate"
	}
	about := ""
	if topic = strings.TrimSpace(topic); topic != "" {
		about = " about " + topic
	}
	out := make([]string, len(pb.Continuation[key]))
	for i, p := range pb.Continuation[key] {
		out[i] = strings.ReplaceAll(p, "{topic}", about)
	}
	return out
}
