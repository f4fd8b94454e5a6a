package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/hagzilla/apiserver/types"
)

// QuizSizes are the question counts a quiz may have.
var QuizSizes = []int{5, 10, 20}

type QuestionRepository interface {
	Get(ctx context.Context, id int) (types.Question, error)
	Match(ctx context.Context, use string, subjects []string) ([]types.Question, error)
	Create(ctx context.Context, q types.Question) (types.Question, error)
	Catalog(ctx context.Context) (types.QuizCatalog, error)
}

type QuizService struct {
	repo QuestionRepository
	intN func(n int) int
}

func NewQuizService(repo QuestionRepository) *QuizService {
	return &QuizService{repo: repo, intN: rand.IntN}
}

// Generate draws count distinct questions uniformly at random among those
// of the given use whose subject is in subjects.
func (s *QuizService) Generate(ctx context.Context, use string, subjects []string, count int) ([]types.Question, error) {
	use = strings.TrimSpace(use)
	if use == "" {
		return nil, fmt.Errorf("%w: use is required", ErrInvalidInput)
	}
	subjects = cleanSubjects(subjects)
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: at least one subject is required", ErrInvalidInput)
	}
	if !slices.Contains(QuizSizes, count) {
		return nil, fmt.Errorf("%w: count must be one of %v", ErrInvalidInput, QuizSizes)
	}

	pool, err := s.repo.Match(ctx, use, subjects)
	if err != nil {
		return nil, err
	}
	if len(pool) < count {
		return nil, fmt.Errorf("%w: %d match, %d requested", ErrNotEnoughQuestions, len(pool), count)
	}

	return sample(pool, count, s.intN), nil
}

func (s *QuizService) Create(ctx context.Context, q types.Question) (types.Question, error) {
	q.Question = strings.TrimSpace(q.Question)
	q.Subject = strings.TrimSpace(q.Subject)
	q.Use = strings.TrimSpace(q.Use)
	q.Correct = strings.TrimSpace(q.Correct)
	if q.Question == "" || q.Subject == "" || q.Use == "" || q.Correct == "" {
		return types.Question{}, fmt.Errorf("%w: question, subject, use and correct are required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, q)
}

func (s *QuizService) Question(ctx context.Context, id int) (types.Question, error) {
	return s.repo.Get(ctx, id)
}

func (s *QuizService) Catalog(ctx context.Context) (types.QuizCatalog, error) {
	return s.repo.Catalog(ctx)
}

// sample runs a partial Fisher-Yates shuffle over a copy of pool.
func sample(pool []types.Question, k int, intN func(int) int) []types.Question {
	picked := slices.Clone(pool)
	for i := 0; i < k; i++ {
		j := i + intN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:k]
}

func cleanSubjects(subjects []string) []string {
	out := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		if subject != "" && !slices.Contains(out, subject) {
			out = append(out, subject)
		}
	}
	return out
}
