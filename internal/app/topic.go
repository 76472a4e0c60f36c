package app

import (
	"math/rand/v2"
	"sync"

	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// Rand is the randomness source of a TopicSelector. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// TopicSelector owns the fixed topic catalog and the last selected topic.
type TopicSelector struct {
	mu      sync.Mutex
	catalog []string
	last    int // -1 until the first selection
	rnd     Rand
}

// NewTopicSelector copies catalog, dropping duplicates. A nil rnd uses the
// process-wide source.
func NewTopicSelector(catalog []string, rnd Rand) (*TopicSelector, error) {
	seen := make(map[string]struct{}, len(catalog))
	topics := make([]string, 0, len(catalog))
	for _, t := range catalog {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &TopicSelector{catalog: topics, last: -1, rnd: rnd}, nil
}

// Select picks a topic uniformly at random, never the previous one when the
// catalog has alternatives.
func (s *TopicSelector) Select() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.catalog)
	var i int
	switch {
	case n == 1:
		i = 0
	case s.last < 0:
		i = s.rnd.IntN(n)
	default:
		i = s.rnd.IntN(n - 1)
		if i >= s.last {
			i++
		}
	}
	s.last = i
	log.Debug().Str("module", "app.topic").Int("index", i).Msg("topic selected")
	return s.catalog[i]
}

func (s *TopicSelector) Last() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last < 0 {
		return "", false
	}
	return s.catalog[s.last], true
}

func (s *TopicSelector) Catalog() []string {
	return append([]string(nil), s.catalog...)
}
