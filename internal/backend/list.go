package backend

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// List is one page of a collection. The backend names the item array after
// the resource ("groups", "quizzes", ...), so decoding goes through itemsField.
type List[T any] struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}

// Rows returns the items of the page; nil-safe.
func (l *List[T]) Rows() any {
	if l == nil {
		return []T{}
	}
	return l.Items
}

// Count is the total across all pages; nil-safe.
func (l *List[T]) Count() int {
	if l == nil {
		return 0
	}
	return l.Total
}

func decodeList[T any](raw json.RawMessage, itemsField string) (*List[T], error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}

	l := &List[T]{}
	for name, dst := range map[string]*int{"total": &l.Total, "page": &l.Page, "limit": &l.Limit} {
		if v, ok := fields[name]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return nil, fmt.Errorf("decoding list %s: %w", name, err)
			}
		}
	}
	if v, ok := fields[itemsField]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &l.Items); err != nil {
			return nil, fmt.Errorf("decoding list %s: %w", itemsField, err)
		}
	}
	if l.Items == nil {
		l.Items = []T{}
	}
	return l, nil
}

// Filter turns list parameters into query values.
type Filter interface {
	Values() url.Values
}

// Paging is the page/limit pair every list endpoint accepts.
type Paging struct {
	Page  int
	Limit int
}

// Normalized applies the backend's defaults: page 1, limit 10.
func (p Paging) Normalized() (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func (p Paging) values() url.Values {
	v := url.Values{}
	page, limit := p.Normalized()
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

func setString(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}

// setID skips nil and zero, matching how the dashboard never sends id=0.
func setID(v url.Values, key string, id *int64) {
	if id != nil && *id != 0 {
		v.Set(key, strconv.FormatInt(*id, 10))
	}
}

func setBool(v url.Values, key string, b *bool) {
	if b != nil {
		v.Set(key, strconv.FormatBool(*b))
	}
}

func setInt(v url.Values, key string, n *int) {
	if n != nil {
		v.Set(key, strconv.Itoa(*n))
	}
}
