package orm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// metadata maps the db-tagged fields of a model struct to column names.
type metadata struct {
	columns []string
	index   map[string][]int
}

var metadataCache sync.Map

func metadataFor[T any]() (*metadata, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if cached, ok := metadataCache.Load(typ); ok {
		return cached.(*metadata), nil
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("orm: model must be a struct, got %v", typ)
	}

	m := &metadata{index: make(map[string][]int)}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("db")
		name := strings.Split(tag, ",")[0]
		if name == "" || name == "-" {
			continue
		}
		m.columns = append(m.columns, name)
		m.index[name] = field.Index
	}

	metadataCache.Store(typ, m)
	return m, nil
}

func (m *metadata) values(record interface{}, columns []string) []interface{} {
	v := reflect.Indirect(reflect.ValueOf(record))
	out := make([]interface{}, len(columns))
	for i, col := range columns {
		out[i] = v.FieldByIndex(m.index[col]).Interface()
	}
	return out
}

func (m *metadata) has(column string) bool {
	_, ok := m.index[column]
	return ok
}

// ColumnsOf returns the mapped column names of T in field order.
func ColumnsOf[T any]() ([]string, error) {
	m, err := metadataFor[T]()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), m.columns...), nil
}
