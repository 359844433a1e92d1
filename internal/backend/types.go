package backend

import (
	"net/url"
	"time"
)

// Faculty is a university faculty.
type Faculty struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FacultyInput is the create/update body for a faculty.
type FacultyInput struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// Kafedra is a department inside a faculty.
type Kafedra struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FacultyID int64     `json:"faculty_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KafedraInput is the create/update body for a kafedra.
type KafedraInput struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	FacultyID int64  `json:"faculty_id" validate:"required,gt=0"`
}

// Group is a student group.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FacultyID int64     `json:"faculty_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupInput is the create/update body for a group.
type GroupInput struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	FacultyID int64  `json:"faculty_id" validate:"required,gt=0"`
}

// Subject is a taught subject.
type Subject struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubjectInput is the create/update body for a subject.
type SubjectInput struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// Ref is the {id, name} shape the backend nests inside other entities.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupTeacher links a teacher's user account to a group.
type GroupTeacher struct {
	GroupID int64 `json:"group_id"`
	Group   Ref   `json:"group"`
}

// SubjectTeacher links a teacher profile to a subject.
type SubjectTeacher struct {
	SubjectID int64 `json:"subject_id"`
	Subject   Ref   `json:"subject"`
}

// Teacher is a teacher profile.
type Teacher struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	ThirdName       string           `json:"third_name"`
	FullName        string           `json:"full_name"`
	KafedraID       int64            `json:"kafedra_id"`
	Kafedra         *Ref             `json:"kafedra,omitempty"`
	User            *TeacherUser     `json:"user,omitempty"`
	SubjectTeachers []SubjectTeacher `json:"subject_teachers,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TeacherUser is the user account nested in a teacher.
type TeacherUser struct {
	ID            int64          `json:"id"`
	Username      string         `json:"username"`
	GroupTeachers []GroupTeacher `json:"group_teachers,omitempty"`
}

// TeacherInput is the create/update body for a teacher.
type TeacherInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	ThirdName string `json:"third_name" validate:"max=100"`
	KafedraID int64  `json:"kafedra_id" validate:"required,gt=0"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
}

// Student is a student profile.
type Student struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ThirdName       string    `json:"third_name"`
	FullName        string    `json:"full_name"`
	GroupID         int64     `json:"group_id"`
	Group           *Ref      `json:"group,omitempty"`
	StudentIDNumber *string   `json:"student_id_number"`
	ImagePath       *string   `json:"image_path"`
	Specialty       *string   `json:"specialty"`
	EducationForm   *string   `json:"education_form"`
	EducationLang   *string   `json:"education_lang"`
	Faculty         *string   `json:"faculty"`
	Level           *string   `json:"level"`
	Semester        *string   `json:"semester"`
	AvgGPA          *float64  `json:"avg_gpa"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StudentInput is the create/update body for a student.
type StudentInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	ThirdName string `json:"third_name" validate:"max=100"`
	GroupID   int64  `json:"group_id" validate:"required,gt=0"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
}

// Role is a named role with optional permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

// RoleInput is the create/update body for a role.
type RoleInput struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

// Permission is a named backend permission.
type Permission struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PermissionInput is the create/update body for a permission.
type PermissionInput struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
}

// User is an account with roles and an optional teacher or student profile.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	Roles     []Role    `json:"roles"`
	Teacher   *Teacher  `json:"teacher"`
	Student   *Student  `json:"student"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleName is the role reference used when creating users.
type RoleName struct {
	Name string `json:"name" validate:"required"`
}

// UserInput creates or updates a user. Password may be empty on update.
type UserInput struct {
	Username string     `json:"username" validate:"required,min=3,max=64"`
	Password string     `json:"password,omitempty" validate:"omitempty,min=6"`
	Roles    []RoleName `json:"roles,omitempty" validate:"dive"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// Quiz is a test definition.
type Quiz struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	QuestionNumber int       `json:"question_number"`
	Duration       int       `json:"duration"`
	Pin            string    `json:"pin"`
	IsActive       bool      `json:"is_active"`
	Attempt        int       `json:"attempt"`
	UserID         *int64    `json:"user_id"`
	GroupID        *int64    `json:"group_id"`
	SubjectID      *int64    `json:"subject_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QuizInput is the create/update body for a quiz.
type QuizInput struct {
	Title          string `json:"title" validate:"required,min=3,max=255"`
	QuestionNumber int    `json:"question_number" validate:"required,gt=0"`
	Duration       int    `json:"duration" validate:"required,gt=0"`
	Pin            string `json:"pin" validate:"required,min=4,max=32"`
	UserID         *int64 `json:"user_id"`
	GroupID        *int64 `json:"group_id"`
	SubjectID      *int64 `json:"subject_id"`
	IsActive       bool   `json:"is_active"`
}

// InputOf rebuilds the write payload of an existing quiz.
func (q Quiz) InputOf() QuizInput {
	return QuizInput{
		Title:          q.Title,
		QuestionNumber: q.QuestionNumber,
		Duration:       q.Duration,
		Pin:            q.Pin,
		UserID:         q.UserID,
		GroupID:        q.GroupID,
		SubjectID:      q.SubjectID,
		IsActive:       q.IsActive,
	}
}

// Question is a four-option question in a teacher's bank.
type Question struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	OptionA   string    `json:"option_a"`
	OptionB   string    `json:"option_b"`
	OptionC   string    `json:"option_c"`
	OptionD   string    `json:"option_d"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionInput is the create/update body for a question. OptionA is the correct answer.
type QuestionInput struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	Text      string `json:"text" validate:"required"`
	OptionA   string `json:"option_a" validate:"required"`
	OptionB   string `json:"option_b" validate:"required"`
	OptionC   string `json:"option_c" validate:"required"`
	OptionD   string `json:"option_d" validate:"required"`
}

// Result is one graded quiz attempt.
type Result struct {
	ID             int64     `json:"id"`
	UserID         *int64    `json:"user_id"`
	QuizID         *int64    `json:"quiz_id"`
	SubjectID      *int64    `json:"subject_id"`
	GroupID        *int64    `json:"group_id"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	Grade          int       `json:"grade"`
	User           *UserRef  `json:"user,omitempty"`
	Quiz           *QuizRef  `json:"quiz,omitempty"`
	Subject        *Ref      `json:"subject,omitempty"`
	Group          *Ref      `json:"group,omitempty"`
	StudentID      *string   `json:"student_id,omitempty"`
	StudentName    *string   `json:"student_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserRef is the {id, username} shape nested in results.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// QuizRef is the {id, title} shape nested in results.
type QuizRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// AnswerQuestion is the question text shown next to a submitted answer.
type AnswerQuestion struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
}

// UserAnswer is one submitted answer.
type UserAnswer struct {
	ID            int64           `json:"id"`
	UserID        *int64          `json:"user_id,omitempty"`
	QuizID        *int64          `json:"quiz_id,omitempty"`
	QuestionID    *int64          `json:"question_id,omitempty"`
	Answer        *string         `json:"answer,omitempty"`
	CorrectAnswer *string         `json:"correct_answer,omitempty"`
	IsCorrect     bool            `json:"is_correct"`
	Question      *AnswerQuestion `json:"question,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NameFilter lists faculties, kafedras, roles and permissions.
type NameFilter struct {
	Paging
	Name string
}

// Values implements Filter.
func (f NameFilter) Values() url.Values {
	v := f.values()
	setString(v, "name", f.Name)
	return v
}

// GroupFilter lists groups; TeacherID is the teacher's user id.
type GroupFilter struct {
	Paging
	Search    string
	TeacherID *int64
}

// Values implements Filter.
func (f GroupFilter) Values() url.Values {
	v := f.values()
	setString(v, "name", f.Search)
	setID(v, "teacher_id", f.TeacherID)
	return v
}

// SubjectFilter lists subjects; TeacherID is the teacher profile id.
type SubjectFilter struct {
	Paging
	Search    string
	TeacherID *int64
}

// Values implements Filter.
func (f SubjectFilter) Values() url.Values {
	v := f.values()
	setString(v, "name", f.Search)
	setID(v, "teacher_id", f.TeacherID)
	return v
}

// TeacherFilter lists teachers.
type TeacherFilter struct {
	Paging
	FullName string
}

// Values implements Filter.
func (f TeacherFilter) Values() url.Values {
	v := f.values()
	setString(v, "full_name", f.FullName)
	return v
}

// StudentFilter lists students.
type StudentFilter struct {
	Paging
	Search  string
	UserID  *int64
	GroupID *int64
}

// Values implements Filter.
func (f StudentFilter) Values() url.Values {
	v := f.values()
	setString(v, "search", f.Search)
	setID(v, "user_id", f.UserID)
	setID(v, "group_id", f.GroupID)
	return v
}

// UserFilter lists users.
type UserFilter struct {
	Paging
	Username string
}

// Values implements Filter.
func (f UserFilter) Values() url.Values {
	v := f.values()
	setString(v, "username", f.Username)
	return v
}

// QuizFilter lists quizzes. The backend additionally scopes by the caller's roles.
type QuizFilter struct {
	Paging
	Title     string
	IsActive  *bool
	UserID    *int64
	GroupID   *int64
	SubjectID *int64
}

// Values implements Filter.
func (f QuizFilter) Values() url.Values {
	v := f.values()
	setString(v, "title", f.Title)
	setBool(v, "is_active", f.IsActive)
	setID(v, "user_id", f.UserID)
	setID(v, "group_id", f.GroupID)
	setID(v, "subject_id", f.SubjectID)
	return v
}

// QuestionFilter lists questions.
type QuestionFilter struct {
	Paging
	Text      string
	SubjectID *int64
	UserID    *int64
}

// Values implements Filter.
func (f QuestionFilter) Values() url.Values {
	v := f.values()
	setString(v, "text", f.Text)
	setID(v, "subject_id", f.SubjectID)
	setID(v, "user_id", f.UserID)
	return v
}

// ResultFilter lists results. A non-nil UserID switches to /result/user/{id}.
type ResultFilter struct {
	Paging
	UserID    *int64
	Grade     *int
	GroupID   *int64
	SubjectID *int64
	QuizID    *int64
}

// Values implements Filter. UserID is part of the path, not the query.
func (f ResultFilter) Values() url.Values {
	v := f.values()
	setInt(v, "grade", f.Grade)
	setID(v, "group_id", f.GroupID)
	setID(v, "subject_id", f.SubjectID)
	setID(v, "quiz_id", f.QuizID)
	return v
}

// AnswerFilter lists submitted answers.
type AnswerFilter struct {
	Paging
	UserID *int64
	QuizID *int64
}

// Values implements Filter.
func (f AnswerFilter) Values() url.Values {
	v := f.values()
	setID(v, "user_id", f.UserID)
	setID(v, "quiz_id", f.QuizID)
	return v
}
