package voice

import (
	"regexp"
	"strings"
)

// Clarifying questions spoken when an utterance is not actionable.
const (
	VagueQuestion   = "I'd like to help! Could you tell me what specific changes you'd like to make? For example, 'change the button to blue' or 'add a welcome message'."
	UnclearQuestion = "I didn't quite catch that. Could you tell me what changes you'd like to make to the design?"
)

var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(change|fix|update|modify|make|do|help)$`),
	regexp.MustCompile(`^(it|this|that)$`),
	regexp.MustCompile(`^(something|anything|nothing)$`),
	regexp.MustCompile(`^(yes|no|ok|okay|sure|fine)$`),
	regexp.MustCompile(`^(um|uh|er|ah)$`),
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "can": true, "you": true, "please": true,
}

// Classification is the verdict on one utterance.
type Classification struct {
	NeedsClarification bool
	Question           string
}

// Classify decides whether an utterance can be used as a prompt. Only
// bare filler words and input with no meaningful word are rejected;
// everything else goes to the transformation as spoken.
func Classify(utterance string) Classification {
	input := strings.ToLower(strings.TrimSpace(utterance))
	for _, re := range vaguePatterns {
		if re.MatchString(input) {
			return Classification{NeedsClarification: true, Question: VagueQuestion}
		}
	}
	meaningful := 0
	for _, w := range strings.Split(input, " ") {
		if len(w) > 2 && !stopwords[w] {
			meaningful++
		}
	}
	if meaningful < 1 {
		return Classification{NeedsClarification: true, Question: UnclearQuestion}
	}
	return Classification{}
}
