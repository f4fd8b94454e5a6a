package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/hagzilla/apiserver/types"
)

// QuestionRepository handles persistence for the quiz question bank.
type QuestionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `id, question, subject, use_case, correct, response_a, response_b, response_c, response_d, remark`

func scanQuestion(row rowScanner) (types.Question, error) {
	var q types.Question
	err := row.Scan(
		&q.ID,
		&q.Question,
		&q.Subject,
		&q.Use,
		&q.Correct,
		&q.Responses[0],
		&q.Responses[1],
		&q.Responses[2],
		&q.Responses[3],
		&q.Remark,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Question{}, ErrNotFound
		}
		return types.Question{}, err
	}
	return q, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id int) (types.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	return scanQuestion(r.db.QueryRowContext(ctx, query, id))
}

// Match returns the questions of the given use whose subject is one of
// subjects. The caller does the sampling.
func (r *QuestionRepository) Match(ctx context.Context, use string, subjects []string) ([]types.Question, error) {
	const query = `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE use_case = $1 AND subject = ANY($2)
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, use, pq.Array(subjects))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []types.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q types.Question) (types.Question, error) {
	const query = `
		INSERT INTO questions (question, subject, use_case, correct, response_a, response_b, response_c, response_d, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		q.Question,
		q.Subject,
		q.Use,
		q.Correct,
		q.Responses[0],
		q.Responses[1],
		q.Responses[2],
		q.Responses[3],
		q.Remark,
	).Scan(&q.ID); err != nil {
		return types.Question{}, mapWriteError(err)
	}
	return q, nil
}

// CreateBatch inserts all questions in one transaction and returns how many
// were written.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []types.Question) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (question, subject, use_case, correct, response_a, response_b, response_c, response_d, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, q := range questions {
		if _, err := stmt.ExecContext(
			ctx,
			q.Question,
			q.Subject,
			q.Use,
			q.Correct,
			q.Responses[0],
			q.Responses[1],
			q.Responses[2],
			q.Responses[3],
			q.Remark,
		); err != nil {
			return 0, mapWriteError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(questions), nil
}

// Catalog lists the distinct uses and subjects in the bank.
func (r *QuestionRepository) Catalog(ctx context.Context) (types.QuizCatalog, error) {
	catalog := types.QuizCatalog{Uses: []string{}, Subjects: []string{}}

	uses, err := r.distinct(ctx, `SELECT DISTINCT use_case FROM questions ORDER BY use_case`)
	if err != nil {
		return types.QuizCatalog{}, err
	}
	subjects, err := r.distinct(ctx, `SELECT DISTINCT subject FROM questions ORDER BY subject`)
	if err != nil {
		return types.QuizCatalog{}, err
	}

	catalog.Uses = append(catalog.Uses, uses...)
	catalog.Subjects = append(catalog.Subjects, subjects...)
	return catalog, nil
}

func (r *QuestionRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
