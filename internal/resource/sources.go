package resource

import (
	"strconv"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/listing"
	"github.com/ndktu/quizdash/internal/query"
	"github.com/ndktu/quizdash/internal/session"
	"github.com/ndktu/quizdash/internal/view"
)

const defaultLimit = 10

// Sources returns the list views of every page, scoped to p.
func Sources(s *Set, p *session.Principal) []view.Source {
	teacherGroups := listSource("teacher-groups", "/teacher-groups", s.Groups, nil, func(lp listing.Params) backend.GroupFilter {
		return backend.GroupFilter{Paging: paging(lp), Search: lp.Search, TeacherID: idFilter(lp, "teacher_id")}
	})
	teacherGroups.Scope = scope("teacher_id", access.GroupsScope(p))

	teacherSubjects := listSource("teacher-subjects", "/teacher-subjects", s.Subjects, nil, func(lp listing.Params) backend.SubjectFilter {
		return backend.SubjectFilter{Paging: paging(lp), Search: lp.Search, TeacherID: idFilter(lp, "teacher_id")}
	})
	teacherSubjects.Scope = scope("teacher_id", access.SubjectsScope(p))
	teacherSubjects.Enabled = func(lp listing.Params) bool {
		return idFilter(lp, "teacher_id") != nil
	}

	questions := listSource("questions", "/questions", s.Questions, []string{"subject_id"}, func(lp listing.Params) backend.QuestionFilter {
		return backend.QuestionFilter{Paging: paging(lp), Text: lp.Search, SubjectID: idFilter(lp, "subject_id"), UserID: idFilter(lp, "user_id")}
	})
	questions.Scope = scope("user_id", access.QuestionsScope(p))
	if questions.Scope == nil {
		questions.Filters = append(questions.Filters, "user_id")
	}

	results := view.Source{
		Name:         "results",
		Route:        "/results",
		DefaultLimit: defaultLimit,
		Filters:      []string{"grade", "group_id", "subject_id", "quiz_id"},
		Scope:        scope("user_id", access.ResultsScope(p)),
		Key: func(lp listing.Params) query.Key {
			return ResultsKey(resultFilter(lp))
		},
		Fetch: func(lp listing.Params) query.Fetcher {
			return s.ResultsFetcher(resultFilter(lp))
		},
	}
	if results.Scope == nil {
		results.Filters = append(results.Filters, "user_id")
	}

	answers := view.Source{
		Name:         "user-answers",
		Route:        "/results/answers",
		DefaultLimit: defaultLimit,
		Filters:      []string{"quiz_id"},
		Scope:        scope("user_id", access.AnswersScope(p)),
		Key: func(lp listing.Params) query.Key {
			return UserAnswersKey(answerFilter(lp))
		},
		Fetch: func(lp listing.Params) query.Fetcher {
			return s.UserAnswersFetcher(answerFilter(lp))
		},
		Enabled: func(lp listing.Params) bool {
			return UserAnswersEnabled(answerFilter(lp))
		},
	}
	if answers.Scope == nil {
		answers.Filters = append(answers.Filters, "user_id")
	}

	return []view.Source{
		listSource("faculties", "/faculties", s.Faculties, nil, nameFilter),
		listSource("kafedras", "/kafedras", s.Kafedras, nil, nameFilter),
		listSource("groups", "/groups", s.Groups, nil, func(lp listing.Params) backend.GroupFilter {
			return backend.GroupFilter{Paging: paging(lp), Search: lp.Search}
		}),
		listSource("subjects", "/subjects", s.Subjects, nil, func(lp listing.Params) backend.SubjectFilter {
			return backend.SubjectFilter{Paging: paging(lp), Search: lp.Search}
		}),
		listSource("teachers", "/teachers", s.Teachers, nil, func(lp listing.Params) backend.TeacherFilter {
			return backend.TeacherFilter{Paging: paging(lp), FullName: lp.Search}
		}),
		listSource("students", "/students", s.Students, []string{"group_id"}, func(lp listing.Params) backend.StudentFilter {
			return backend.StudentFilter{Paging: paging(lp), Search: lp.Search, GroupID: idFilter(lp, "group_id")}
		}),
		listSource("users", "/users", s.Users, nil, func(lp listing.Params) backend.UserFilter {
			return backend.UserFilter{Paging: paging(lp), Username: lp.Search}
		}),
		listSource("roles", "/roles", s.Roles, nil, nameFilter),
		listSource("permissions", "/permissions", s.Permissions, nil, nameFilter),
		listSource("quizzes", "/quizzes", s.Quizzes, []string{"group_id", "subject_id", "is_active"}, func(lp listing.Params) backend.QuizFilter {
			return backend.QuizFilter{
				Paging:    paging(lp),
				Title:     lp.Search,
				IsActive:  boolFilter(lp, "is_active"),
				GroupID:   idFilter(lp, "group_id"),
				SubjectID: idFilter(lp, "subject_id"),
			}
		}),
		questions,
		results,
		answers,
		teacherGroups,
		teacherSubjects,
	}
}

func listSource[T, In any, F backend.Filter](name, route string, c Collection[T, In, F], filters []string, build func(listing.Params) F) view.Source {
	return view.Source{
		Name:         name,
		Route:        route,
		DefaultLimit: defaultLimit,
		Filters:      filters,
		Key: func(lp listing.Params) query.Key {
			return c.ListKey(build(lp))
		},
		Fetch: func(lp listing.Params) query.Fetcher {
			return c.ListFetcher(build(lp))
		},
	}
}

func nameFilter(lp listing.Params) backend.NameFilter {
	return backend.NameFilter{Paging: paging(lp), Name: lp.Search}
}

func resultFilter(lp listing.Params) backend.ResultFilter {
	return backend.ResultFilter{
		Paging:    paging(lp),
		UserID:    idFilter(lp, "user_id"),
		Grade:     intFilter(lp, "grade"),
		GroupID:   idFilter(lp, "group_id"),
		SubjectID: idFilter(lp, "subject_id"),
		QuizID:    idFilter(lp, "quiz_id"),
	}
}

func answerFilter(lp listing.Params) backend.AnswerFilter {
	return backend.AnswerFilter{Paging: paging(lp), UserID: idFilter(lp, "user_id"), QuizID: idFilter(lp, "quiz_id")}
}

func paging(lp listing.Params) backend.Paging {
	return backend.Paging{Page: lp.Page, Limit: lp.Limit}
}

func scope(name string, id *int64) map[string]string {
	if id == nil {
		return nil
	}
	return map[string]string{name: strconv.FormatInt(*id, 10)}
}

// idFilter parses a positive id filter; anything else means "not set".
func idFilter(lp listing.Params, name string) *int64 {
	id, err := strconv.ParseInt(lp.Filters[name], 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func intFilter(lp listing.Params, name string) *int {
	n, err := strconv.Atoi(lp.Filters[name])
	if err != nil {
		return nil
	}
	return &n
}

func boolFilter(lp listing.Params, name string) *bool {
	b, err := strconv.ParseBool(lp.Filters[name])
	if err != nil {
		return nil
	}
	return &b
}
