package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/types"
)

type QuizService interface {
	Generate(ctx context.Context, use string, subjects []string, count int) ([]types.Question, error)
	Create(ctx context.Context, q types.Question) (types.Question, error)
	Question(ctx context.Context, id int) (types.Question, error)
	Catalog(ctx context.Context) (types.QuizCatalog, error)
}

type QuizHandler struct {
	quiz QuizService
}

func NewQuizHandler(quiz QuizService) *QuizHandler {
	return &QuizHandler{quiz: quiz}
}

func QuizRouter(r chi.Router, quiz QuizService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewQuizHandler(quiz)

	r.Use(authMiddleware)
	r.Get("/", handler.Generate)
	r.Get("/subjects", handler.Catalog)
	r.Group(func(r chi.Router) {
		r.Use(RequireRole(types.RoleAdmin))
		r.Post("/questions", handler.CreateQuestion)
		r.Get("/questions/{questionID}", handler.GetQuestion)
	})
}

type QuestionRequest struct {
	Question  string    `json:"question" validate:"required"`
	Subject   string    `json:"subject" validate:"required,max=128"`
	Use       string    `json:"use" validate:"required,max=128"`
	Correct   string    `json:"correct" validate:"required,max=16"`
	Responses [4]string `json:"responses"`
	Remark    string    `json:"remark"`
}

// Generate reads ?use=&subject=a&subject=b&count=.
func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	count, err := strconv.Atoi(query.Get("count"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}

	questions, err := h.quiz.Generate(r.Context(), query.Get("use"), query["subject"], count)
	if err != nil {
		writeServiceError(w, r, err, "no questions", "failed to generate quiz")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *QuizHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.quiz.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "no questions", "failed to list subjects")
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *QuizHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := h.quiz.Create(r.Context(), types.Question{
		Question:  req.Question,
		Subject:   req.Subject,
		Use:       req.Use,
		Correct:   req.Correct,
		Responses: req.Responses,
		Remark:    req.Remark,
	})
	if err != nil {
		writeServiceError(w, r, err, "question not found", "failed to create question")
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *QuizHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := h.quiz.Question(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "question not found", "failed to get question")
		return
	}
	writeJSON(w, http.StatusOK, question)
}
