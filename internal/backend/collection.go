package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Collection is the conventional CRUD surface of one backend resource:
// GET/POST {path}/ and GET/PUT/DELETE {path}/{id}.
type Collection[T any, In any] struct {
	c          *Client
	path       string
	itemsField string
}

func newCollection[T any, In any](c *Client, path, itemsField string) Collection[T, In] {
	return Collection[T, In]{c: c, path: path, itemsField: itemsField}
}

// List fetches one page.
func (col Collection[T, In]) List(ctx context.Context, f Filter) (*List[T], error) {
	var raw json.RawMessage
	if err := col.c.do(ctx, http.MethodGet, col.path+"/", f.Values(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw, col.itemsField)
}

// Get fetches one item by id.
func (col Collection[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := col.c.do(ctx, http.MethodGet, col.itemPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new item.
func (col Collection[T, In]) Create(ctx context.Context, in In) (*T, error) {
	var out T
	if err := col.c.do(ctx, http.MethodPost, col.path+"/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an item.
func (col Collection[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	var out T
	if err := col.c.do(ctx, http.MethodPut, col.itemPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an item.
func (col Collection[T, In]) Delete(ctx context.Context, id int64) error {
	return col.c.do(ctx, http.MethodDelete, col.itemPath(id), nil, nil, nil)
}

func (col Collection[T, In]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%s", col.path, strconv.FormatInt(id, 10))
}

// Faculties is /faculty.
func (c *Client) Faculties() Collection[Faculty, FacultyInput] {
	return newCollection[Faculty, FacultyInput](c, "/faculty", "faculties")
}

// Kafedras is /kafedra.
func (c *Client) Kafedras() Collection[Kafedra, KafedraInput] {
	return newCollection[Kafedra, KafedraInput](c, "/kafedra", "kafedras")
}

// Groups is /group.
func (c *Client) Groups() Collection[Group, GroupInput] {
	return newCollection[Group, GroupInput](c, "/group", "groups")
}

// Subjects is /subject.
func (c *Client) Subjects() Collection[Subject, SubjectInput] {
	return newCollection[Subject, SubjectInput](c, "/subject", "subjects")
}

// Teachers is /teacher.
func (c *Client) Teachers() Collection[Teacher, TeacherInput] {
	return newCollection[Teacher, TeacherInput](c, "/teacher", "teachers")
}

// Students is /students.
func (c *Client) Students() Collection[Student, StudentInput] {
	return newCollection[Student, StudentInput](c, "/students", "students")
}

// Users is /user.
func (c *Client) Users() Collection[User, UserInput] {
	return newCollection[User, UserInput](c, "/user", "users")
}

// Roles is /role.
func (c *Client) Roles() Collection[Role, RoleInput] {
	return newCollection[Role, RoleInput](c, "/role", "roles")
}

// Permissions is /permission.
func (c *Client) Permissions() Collection[Permission, PermissionInput] {
	return newCollection[Permission, PermissionInput](c, "/permission", "permissions")
}

// Quizzes is /quiz.
func (c *Client) Quizzes() Collection[Quiz, QuizInput] {
	return newCollection[Quiz, QuizInput](c, "/quiz", "quizzes")
}

// Questions is /question.
func (c *Client) Questions() Collection[Question, QuestionInput] {
	return newCollection[Question, QuestionInput](c, "/question", "questions")
}
