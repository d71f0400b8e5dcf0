package voice

import (
	"math/rand"
	"sync"
)

// Chooser picks one reply from a pool.
type Chooser interface {
	Choose(options []string) string
}

// RoundRobin cycles through the pool so consecutive replies differ.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobin) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := options[r.next%len(options)]
	r.next = (r.next + 1) % len(options)
	return s
}

// Random picks uniformly. IntN may be replaced in tests.
type Random struct {
	IntN func(n int) int
}

func (r Random) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	intN := r.IntN
	if intN == nil {
		intN = rand.Intn
	}
	return options[intN(len(options))]
}

// Phrases are the spoken replies of the conversation loop.
type Phrases struct {
	Acknowledgements []string
	Completions      []string
	Apologies        []string
}

// DefaultPhrases returns the built-in English replies.
func DefaultPhrases() Phrases {
	return Phrases{
		Acknowledgements: []string{
			"Got it, working on that now.",
			"Sure, let me change that.",
			"On it.",
			"Okay, give me a moment.",
			"Great idea, applying it now.",
		},
		Completions: []string{
			"Done! What would you like to change next?",
			"All set. Anything else?",
			"That's updated. What's next?",
			"Finished. Want to tweak anything else?",
		},
		Apologies: []string{
			"Sorry, that didn't work. Could you try saying it another way?",
			"I ran into a problem making that change. Let's try again.",
			"Something went wrong on my end. What would you like to try instead?",
		},
	}
}
