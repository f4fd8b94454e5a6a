package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hagzilla/apiserver/internal/storage"
	"github.com/hagzilla/apiserver/types"
)

var questionColumns = []string{
	"question", "subject", "use", "correct",
	"responsea", "responseb", "responsec", "responsed",
	"remark",
}

type QuestionBatchWriter interface {
	CreateBatch(ctx context.Context, questions []types.Question) (int, error)
}

// QuestionImporter loads question bank CSV files from disk or from object
// storage. objects may be nil when no object store is configured.
type QuestionImporter struct {
	repo    QuestionBatchWriter
	objects storage.ObjectStorage
}

func NewQuestionImporter(repo QuestionBatchWriter, objects storage.ObjectStorage) *QuestionImporter {
	return &QuestionImporter{repo: repo, objects: objects}
}

func (i *QuestionImporter) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return i.Import(ctx, f)
}

func (i *QuestionImporter) ImportObject(ctx context.Context, key string) (int, error) {
	if i.objects == nil {
		return 0, storage.ErrDisabled
	}
	r, err := i.objects.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return i.Import(ctx, r)
}

// Upload copies a local CSV into the bucket under key, creating the bucket
// if needed. The file is parsed first so a broken bank is never published.
func (i *QuestionImporter) Upload(ctx context.Context, path, key string) error {
	if i.objects == nil {
		return storage.ErrDisabled
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := ParseQuestions(f); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := i.objects.EnsureBucket(ctx); err != nil {
		return err
	}
	return i.objects.Put(ctx, key, f, info.Size(), "text/csv")
}

func (i *QuestionImporter) Import(ctx context.Context, r io.Reader) (int, error) {
	questions, err := ParseQuestions(r)
	if err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}
	return i.repo.CreateBatch(ctx, questions)
}

// ParseQuestions reads the question bank layout:
// question,subject,use,correct,responseA,responseB,responseC,responseD,remark
// Columns are matched by header name; remark and the response columns may be
// missing.
func ParseQuestions(r io.Reader) ([]types.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty question file", ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range questionColumns[:4] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidInput, required)
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var questions []types.Question
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, line, err)
		}

		q := types.Question{
			Question: field(record, "question"),
			Subject:  field(record, "subject"),
			Use:      field(record, "use"),
			Correct:  field(record, "correct"),
			Remark:   field(record, "remark"),
		}
		for n, column := range questionColumns[4:8] {
			q.Responses[n] = field(record, column)
		}
		if q.Question == "" || q.Subject == "" || q.Use == "" || q.Correct == "" {
			return nil, fmt.Errorf("%w: line %d: question, subject, use and correct are required", ErrInvalidInput, line)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
