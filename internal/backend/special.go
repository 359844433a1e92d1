package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RepeatQuiz reopens a quiz for another attempt.
func (c *Client) RepeatQuiz(ctx context.Context, id int64) (*Quiz, error) {
	var out Quiz
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/quiz/%d/repeat", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignGroups links groups to a teacher's user account.
type AssignGroups struct {
	UserID   int64   `json:"user_id" validate:"required,gt=0"`
	GroupIDs []int64 `json:"group_ids" validate:"required,dive,gt=0"`
}

// AssignSubjects links subjects to a teacher profile.
type AssignSubjects struct {
	TeacherID  int64   `json:"teacher_id" validate:"required,gt=0"`
	SubjectIDs []int64 `json:"subject_ids" validate:"required,dive,gt=0"`
}

// AssignPermissions replaces the permission set of a role.
type AssignPermissions struct {
	RoleID        int64   `json:"role_id" validate:"required,gt=0"`
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

// AssignTeacherGroups calls /teacher/assign_groups.
func (c *Client) AssignTeacherGroups(ctx context.Context, in AssignGroups) error {
	return c.do(ctx, http.MethodPost, "/teacher/assign_groups", nil, in, nil)
}

// AssignTeacherSubjects calls /teacher/assign_subjects.
func (c *Client) AssignTeacherSubjects(ctx context.Context, in AssignSubjects) error {
	return c.do(ctx, http.MethodPost, "/teacher/assign_subjects", nil, in, nil)
}

// AssignRolePermissions calls /role/assign_permission.
func (c *Client) AssignRolePermissions(ctx context.Context, in AssignPermissions) error {
	return c.do(ctx, http.MethodPost, "/role/assign_permission", nil, in, nil)
}

// GroupStudents lists the students of one group.
func (c *Client) GroupStudents(ctx context.Context, groupID int64, f StudentFilter) (*List[Student], error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/group/%d/students", groupID), f.Values(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Student](raw, "students")
}

// Results lists results. A UserID in the filter selects /result/user/{id}.
func (c *Client) Results(ctx context.Context, f ResultFilter) (*List[Result], error) {
	path := "/result/"
	if f.UserID != nil && *f.UserID != 0 {
		path = fmt.Sprintf("/result/user/%d", *f.UserID)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, f.Values(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Result](raw, "results")
}

// Result fetches one result.
func (c *Client) Result(ctx context.Context, id int64) (*Result, error) {
	var out Result
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/result/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResult removes one result.
func (c *Client) DeleteResult(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/result/%d", id), nil, nil, nil)
}

// UserAnswers lists submitted answers.
func (c *Client) UserAnswers(ctx context.Context, f AnswerFilter) (*List[UserAnswer], error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/user_answers/", f.Values(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[UserAnswer](raw, "answers")
}

// StartQuiz is the body of /quiz_process/start_quiz.
type StartQuiz struct {
	QuizID int64  `json:"quiz_id" validate:"required,gt=0"`
	Pin    string `json:"pin" validate:"required"`
}

// QuizSession is the question sheet handed to a student.
type QuizSession struct {
	QuizID    int64            `json:"quiz_id"`
	Title     string           `json:"title"`
	Duration  int              `json:"duration"`
	Questions []AnswerQuestion `json:"questions"`
}

// Answer is one submitted choice.
type Answer struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Answer     string `json:"answer" validate:"required"`
}

// EndQuiz is the body of /quiz_process/end_quiz.
type EndQuiz struct {
	QuizID  int64    `json:"quiz_id" validate:"required,gt=0"`
	Answers []Answer `json:"answers" validate:"dive"`
}

// StartQuiz opens a quiz attempt.
func (c *Client) StartQuiz(ctx context.Context, in StartQuiz) (*QuizSession, error) {
	var out QuizSession
	if err := c.do(ctx, http.MethodPost, "/quiz_process/start_quiz", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndQuiz submits answers; the backend grades them.
func (c *Client) EndQuiz(ctx context.Context, in EndQuiz) (*Result, error) {
	var out Result
	if err := c.do(ctx, http.MethodPost, "/quiz_process/end_quiz", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Count returns only the total of a collection, as the dashboard cards need.
func (c *Client) Count(ctx context.Context, path string) (int, error) {
	var out struct {
		Total int `json:"total"`
	}
	q := url.Values{"page": {"1"}, "limit": {"1"}}
	if err := c.do(ctx, http.MethodGet, path+"/", q, nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}
