package workspace

import (
	"github.com/funnyzak/reqkit/internal/derive"
	"github.com/funnyzak/reqkit/pkg/request"
)

type rowList int

const (
	headerRows rowList = iota
	paramRows
)

func (l rowList) prefix() string {
	if l == headerRows {
		return "header"
	}
	return "param"
}

func (l rowList) get(r *request.HTTPRequest) *[]request.KeyValue {
	if l == headerRows {
		return &r.Headers
	}
	return &r.Params
}

// finish restores the trailing-row shape and, for params, the URL.
func (l rowList) finish(r *request.HTTPRequest) {
	rows := l.get(r)
	*rows = derive.NormalizeRows(*rows, l.prefix())
	if l == paramRows {
		*r = derive.SyncURL(*r)
	}
}

func (s *Store) addRow(l rowList, key, value string) (request.KeyValue, bool) {
	row := derive.EditRow(request.NewRow(l.prefix()), key, value)
	_, ok := s.mutateActive(func(r *request.HTTPRequest) bool {
		rows := l.get(r)
		*rows = derive.InsertBeforeTrailing(*rows, row)
		l.finish(r)
		return true
	})
	return row, ok
}

func (s *Store) editRow(l rowList, id string, fn func(request.KeyValue) request.KeyValue) bool {
	_, ok := s.mutateActive(func(r *request.HTTPRequest) bool {
		rows := l.get(r)
		for i := range *rows {
			if (*rows)[i].ID == id {
				(*rows)[i] = fn((*rows)[i])
				l.finish(r)
				return true
			}
		}
		return false
	})
	return ok
}

func (s *Store) removeRow(l rowList, id string) bool {
	_, ok := s.mutateActive(func(r *request.HTTPRequest) bool {
		rows := l.get(r)
		for i := range *rows {
			if (*rows)[i].ID == id {
				*rows = append((*rows)[:i], (*rows)[i+1:]...)
				l.finish(r)
				return true
			}
		}
		return false
	})
	return ok
}

// AddHeader inserts a header before the trailing blank row.
func (s *Store) AddHeader(key, value string) (request.KeyValue, bool) {
	return s.addRow(headerRows, key, value)
}

// UpdateHeader sets key and value, enabling the row once either is non-blank.
func (s *Store) UpdateHeader(id, key, value string) bool {
	return s.editRow(headerRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, key, value)
	})
}

func (s *Store) UpdateHeaderKey(id, key string) bool {
	return s.editRow(headerRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, key, kv.Value)
	})
}

func (s *Store) UpdateHeaderValue(id, value string) bool {
	return s.editRow(headerRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, kv.Key, value)
	})
}

func (s *Store) ToggleHeader(id string) bool {
	return s.editRow(headerRows, id, func(kv request.KeyValue) request.KeyValue {
		kv.Enabled = !kv.Enabled
		return kv
	})
}

func (s *Store) RemoveHeader(id string) bool {
	return s.removeRow(headerRows, id)
}

// AddParam inserts a param and rebuilds the URL query. An invalid key is
// reported as a warning; the param is added regardless.
func (s *Store) AddParam(key, value string) (request.KeyValue, *request.ValidationError, bool) {
	row, ok := s.addRow(paramRows, key, value)
	if !ok {
		return row, nil, false
	}
	return row, request.CheckKey(key), true
}

// UpdateParam sets key and value and rebuilds the URL query.
func (s *Store) UpdateParam(id, key, value string) (*request.ValidationError, bool) {
	ok := s.editRow(paramRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, key, value)
	})
	if !ok {
		return nil, false
	}
	return request.CheckKey(key), true
}

func (s *Store) UpdateParamKey(id, key string) (*request.ValidationError, bool) {
	ok := s.editRow(paramRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, key, kv.Value)
	})
	if !ok {
		return nil, false
	}
	return request.CheckKey(key), true
}

func (s *Store) UpdateParamValue(id, value string) bool {
	return s.editRow(paramRows, id, func(kv request.KeyValue) request.KeyValue {
		return derive.EditRow(kv, kv.Key, value)
	})
}

func (s *Store) ToggleParam(id string) bool {
	return s.editRow(paramRows, id, func(kv request.KeyValue) request.KeyValue {
		kv.Enabled = !kv.Enabled
		return kv
	})
}

func (s *Store) RemoveParam(id string) bool {
	return s.removeRow(paramRows, id)
}
