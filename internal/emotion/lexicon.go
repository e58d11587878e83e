package emotion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultKeywords = map[Label][]string{
	Happy: {
		"happy", "joy", "joyful", "great", "awesome", "wonderful",
		"fantastic", "excellent", "amazing", "love", "loved", "loving", "delighted",
		"pleased", "cheerful", "glad", "blessed", "grateful",
		"fortunate", "lucky", "celebrate", "celebration", "yay", "hooray", "brilliant",
		"perfect", "beautiful", "lovely", "enjoy", "enjoyed", "enjoying", "fun",
	},
	Excited: {
		"excited", "thrilled", "ecstatic", "pumped", "hyped", "energized",
		"enthusiastic", "eager", "stoked", "fired up", "exhilarated", "elated",
	},
	Content: {
		"content", "satisfied", "peaceful", "serene", "comfortable", "relaxed",
		"pleased", "fulfilled", "gratified",
	},
	Calm: {
		"calm", "peaceful", "tranquil", "serene", "composed", "collected",
		"relaxed", "mellow", "zen", "chill", "easygoing",
	},
	Sad: {
		"sad", "unhappy", "depressed", "down", "miserable", "upset", "disappointed",
		"heartbroken", "lonely", "alone", "cry", "crying", "tears", "sorrow",
		"grief", "regret", "sorry", "hurt", "pain", "painful", "miss", "missing",
		"lost", "hopeless", "despair", "gloomy", "melancholy", "blue", "dejected",
		"disheartened", "unfortunate", "tragic", "tragedy", "mourn", "mourning",
	},
	Tired: {
		"tired", "exhausted", "weary", "fatigued", "drained", "worn out",
		"sleepy", "drowsy", "lethargic", "sluggish", "burned out",
	},
	Bored: {
		"bored", "uninterested", "indifferent", "apathetic", "dull", "monotonous",
		"tedious", "uninspired", "listless",
	},
	Angry: {
		"angry", "mad", "furious", "rage", "hate", "hatred", "annoyed", "irritated",
		"outraged", "livid", "enraged", "pissed", "upset",
		"resentful", "bitter", "hostile", "aggressive", "violent", "fight",
		"fighting", "argue", "arguing", "argument", "damn", "hell", "stupid", "idiot",
		"terrible", "awful", "worst", "horrible", "sucks", "ridiculous",
	},
	Frustrated: {
		"frustrated", "annoyed", "irritated", "exasperated", "aggravated",
		"bothered", "vexed", "irked", "fed up",
	},
	Disgust: {
		"disgusted", "disgust", "revolted", "repulsed", "nauseated", "sick",
		"gross", "yuck", "ew", "nasty", "vile", "repugnant",
	},
	Fear: {
		"fear", "afraid", "scared", "frightened", "terrified",
		"worried", "worry", "nervous", "panic", "panicked", "dread", "horror",
		"horrified", "alarmed", "concerned", "uneasy", "tense",
		"overwhelmed", "insecure", "threatened", "danger", "dangerous", "risk",
		"risky", "uncertain", "doubt", "doubtful", "suspicious", "paranoid",
	},
	Anxious: {
		"anxious", "anxiety", "stressed", "stress", "nervous", "tense",
		"apprehensive", "uneasy", "restless", "on edge", "jittery",
	},
	Worried: {
		"worried", "concern", "concerned", "troubled", "distressed",
		"bothered", "perturbed", "fretful",
	},
	Surprise: {
		"surprise", "surprised", "shocking", "shocked", "amazed", "astonished",
		"astounded", "stunned", "unexpected", "wow", "omg", "unbelievable",
		"incredible", "extraordinary", "remarkable", "startled", "speechless",
		"bewildered", "sudden", "suddenly", "whoa",
	},
	Confused: {
		"confused", "puzzled", "perplexed", "baffled", "bewildered",
		"mystified", "disoriented", "uncertain", "unclear", "lost",
	},
	Neutral: {
		"okay", "ok", "fine", "alright", "normal", "regular", "usual", "ordinary",
		"average", "moderate", "so-so", "whatever", "meh", "nothing", "neither",
	},
}

var defaultIntensifiers = []string{
	"very", "extremely", "really", "so", "too", "quite", "absolutely",
	"completely", "totally", "utterly", "incredibly", "exceptionally",
}

var defaultNegations = []string{
	"not", "no", "never", "neither", "nobody", "nothing", "nowhere",
	"hardly", "barely", "scarcely", "n't", "cannot", "cant",
}

type wordSet map[string]struct{}

func newWordSet(words []string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// Lexicon holds the trigger tables used by the text scorer. It is built once
// and never mutated, so one instance can back any number of scorers.
//
// Triggers containing a space ("fired up", "worn out") are kept but never
// match, since matching is per token.
type Lexicon struct {
	keywords     map[Label]wordSet
	intensifiers wordSet
	negations    wordSet
}

// DefaultLexicon returns the built-in English tables.
func DefaultLexicon() *Lexicon {
	return buildLexicon(defaultKeywords, defaultIntensifiers, defaultNegations)
}

func buildLexicon(keywords map[Label][]string, intensifiers, negations []string) *Lexicon {
	lex := &Lexicon{
		keywords:     make(map[Label]wordSet, len(Labels)),
		intensifiers: newWordSet(intensifiers),
		negations:    newWordSet(negations),
	}
	for _, l := range Labels {
		lex.keywords[l] = newWordSet(keywords[l])
	}
	return lex
}

// IsTrigger reports whether word is a trigger for label.
func (x *Lexicon) IsTrigger(label Label, word string) bool {
	return x.keywords[label].has(word)
}

func (x *Lexicon) IsIntensifier(word string) bool {
	return x.intensifiers.has(word)
}

func (x *Lexicon) IsNegation(word string) bool {
	return x.negations.has(word)
}

// LexiconFile is the YAML shape accepted by LoadLexicon. A label listed under
// keywords replaces that label's default triggers; non-empty intensifier or
// negation lists replace the defaults.
type LexiconFile struct {
	Keywords     map[string][]string `yaml:"keywords"`
	Intensifiers []string            `yaml:"intensifiers"`
	Negations    []string            `yaml:"negations"`
}

// ParseLexicon merges YAML overrides onto the default tables.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var file LexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	keywords := make(map[Label][]string, len(defaultKeywords))
	for l, words := range defaultKeywords {
		keywords[l] = words
	}
	for name, words := range file.Keywords {
		l, err := ParseLabel(name)
		if err != nil {
			return nil, fmt.Errorf("parse lexicon: %w", err)
		}
		keywords[l] = words
	}

	intensifiers := defaultIntensifiers
	if len(file.Intensifiers) > 0 {
		intensifiers = file.Intensifiers
	}
	negations := defaultNegations
	if len(file.Negations) > 0 {
		negations = file.Negations
	}
	return buildLexicon(keywords, intensifiers, negations), nil
}

// LoadLexicon reads overrides from path. An empty path yields the defaults.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}
