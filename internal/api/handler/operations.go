package handler

import (
	"net/http"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/resource"
)

// OperationsHandler serves the endpoints that are not plain CRUD: quiz
// toggling and repeats, the quiz process, results, answers, assignments and
// the dashboard counters.
type OperationsHandler struct {
	base
}

// NewOperationsHandler creates an OperationsHandler.
func NewOperationsHandler(expirer SessionExpirer, v *validation.Validator) *OperationsHandler {
	return &OperationsHandler{base: newBase(expirer, v)}
}

func resources(r *http.Request) *resource.Set {
	return middleware.GetWorkspace(r.Context()).Resources
}

type toggleRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// ToggleQuiz handles PATCH /api/quizzes/{id}/active.
func (h *OperationsHandler) ToggleQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	quiz, err := resources(r).ToggleQuiz(r.Context(), id, *req.IsActive)
	if err != nil {
		h.fail(w, r, err, "Quiz")
		return
	}
	response.Success(w, http.StatusOK, quiz, middleware.GetRequestID(r.Context()))
}

// RepeatQuiz handles POST /api/quizzes/{id}/repeat.
func (h *OperationsHandler) RepeatQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	quiz, err := resources(r).RepeatQuiz(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Quiz")
		return
	}
	response.Success(w, http.StatusOK, quiz, middleware.GetRequestID(r.Context()))
}

// StartQuiz handles POST /api/quiz-process/start.
func (h *OperationsHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req backend.StartQuiz
	if !h.decode(w, r, &req) {
		return
	}
	sheet, err := resources(r).StartQuiz(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Quiz")
		return
	}
	response.Success(w, http.StatusOK, sheet, middleware.GetRequestID(r.Context()))
}

// EndQuiz handles POST /api/quiz-process/end.
func (h *OperationsHandler) EndQuiz(w http.ResponseWriter, r *http.Request) {
	var req backend.EndQuiz
	if !h.decode(w, r, &req) {
		return
	}
	result, err := resources(r).EndQuiz(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Quiz")
		return
	}
	response.Success(w, http.StatusOK, result, middleware.GetRequestID(r.Context()))
}

// ListResults handles GET /api/results. Students only ever get their own.
func (h *OperationsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	f := backend.ResultFilter{
		Paging:    paging(r),
		UserID:    queryID(r, "user_id"),
		GroupID:   queryID(r, "group_id"),
		SubjectID: queryID(r, "subject_id"),
		QuizID:    queryID(r, "quiz_id"),
	}
	if g := queryInt(r, "grade"); g > 0 {
		f.Grade = &g
	}
	if scope := access.ResultsScope(middleware.GetPrincipal(r.Context())); scope != nil {
		f.UserID = scope
	}

	var (
		list *backend.List[backend.Result]
		err  error
	)
	if f.UserID != nil {
		list, err = resources(r).UserResults(r.Context(), *f.UserID, f)
	} else {
		list, err = resources(r).Results(r.Context(), f)
	}
	if err != nil {
		h.fail(w, r, err, "Results")
		return
	}
	page, limit := f.Normalized()
	response.SuccessList(w, http.StatusOK, list.Items, list.Total, page, limit, middleware.GetRequestID(r.Context()))
}

// GetResult handles GET /api/results/{id}.
func (h *OperationsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := resources(r).Result(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Result")
		return
	}
	if scope := access.ResultsScope(middleware.GetPrincipal(r.Context())); scope != nil && (result.UserID == nil || *result.UserID != *scope) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Result not found", middleware.GetRequestID(r.Context()))
		return
	}
	response.Success(w, http.StatusOK, result, middleware.GetRequestID(r.Context()))
}

// DeleteResult handles DELETE /api/results/{id}.
func (h *OperationsHandler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := resources(r).DeleteResult(r.Context(), id); err != nil {
		h.fail(w, r, err, "Result")
		return
	}
	response.NoContent(w)
}

// ListAnswers handles GET /api/user-answers. A user or a quiz is required.
func (h *OperationsHandler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	f := backend.AnswerFilter{Paging: paging(r), UserID: queryID(r, "user_id"), QuizID: queryID(r, "quiz_id")}
	if scope := access.AnswersScope(middleware.GetPrincipal(r.Context())); scope != nil {
		f.UserID = scope
	}
	if !resource.UserAnswersEnabled(f) {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "user_id", Message: "user_id or quiz_id is required"}},
			middleware.GetRequestID(r.Context()))
		return
	}
	list, err := resources(r).UserAnswers(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "Answers")
		return
	}
	page, limit := f.Normalized()
	response.SuccessList(w, http.StatusOK, list.Items, list.Total, page, limit, middleware.GetRequestID(r.Context()))
}

// GroupStudents handles GET /api/groups/{id}/students.
func (h *OperationsHandler) GroupStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := resources(r).GroupStudents(r.Context(), id, search(r))
	if err != nil {
		h.fail(w, r, err, "Group")
		return
	}
	response.SuccessList(w, http.StatusOK, list.Items, list.Total, 1, len(list.Items), middleware.GetRequestID(r.Context()))
}

// AssignGroups handles POST /api/teachers/assign-groups.
func (h *OperationsHandler) AssignGroups(w http.ResponseWriter, r *http.Request) {
	var req backend.AssignGroups
	if !h.decode(w, r, &req) {
		return
	}
	if err := resources(r).AssignTeacherGroups(r.Context(), req); err != nil {
		h.fail(w, r, err, "Teacher")
		return
	}
	response.NoContent(w)
}

// AssignSubjects handles POST /api/teachers/assign-subjects.
func (h *OperationsHandler) AssignSubjects(w http.ResponseWriter, r *http.Request) {
	var req backend.AssignSubjects
	if !h.decode(w, r, &req) {
		return
	}
	if err := resources(r).AssignTeacherSubjects(r.Context(), req); err != nil {
		h.fail(w, r, err, "Teacher")
		return
	}
	response.NoContent(w)
}

// AssignPermissions handles POST /api/roles/assign-permissions.
func (h *OperationsHandler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	var req backend.AssignPermissions
	if !h.decode(w, r, &req) {
		return
	}
	if err := resources(r).AssignRolePermissions(r.Context(), req); err != nil {
		h.fail(w, r, err, "Role")
		return
	}
	response.NoContent(w)
}

// DashboardStats handles GET /api/dashboard/stats.
func (h *OperationsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := resources(r).DashboardStats(r.Context())
	if err != nil {
		h.fail(w, r, err, "Dashboard")
		return
	}
	response.Success(w, http.StatusOK, stats, middleware.GetRequestID(r.Context()))
}
