package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedQuestionSource caches fetched batches with a TTL so rapid quiz
// restarts don't hammer the trivia API. Batches are keyed by amount and
// concurrent misses collapse into one upstream call.
type CachedQuestionSource struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedBatch
}

type cachedBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionSource(source app.QuestionSource, ttl time.Duration) *CachedQuestionSource {
	return &CachedQuestionSource{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedBatch),
	}
}

func (c *CachedQuestionSource) FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[amount]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(cacheKey(amount), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[amount]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.source.FetchQuestions(ctx, amount)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[amount] = cachedBatch{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedQuestionSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cacheKey(amount int) string {
	return "batch:" + strconv.Itoa(amount)
}

// StaticQuestionSource serves a fixed question list (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) FetchQuestions(_ context.Context, amount int) ([]domain.Question, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if amount <= 0 || amount > len(s.questions) {
		amount = len(s.questions)
	}
	return s.questions[:amount], nil
}
