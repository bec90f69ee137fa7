package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns extracts column names from struct "db" tags,
// descending into embedded structs such as entity.BaseDocument.
// Called once per type at repository construction.
//
// Usage:
//
//	columns := ExtractDBColumns[write_off.WriteOff]()
//	// ["id", "created_at", ..., "material_id", "lot_id", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	meta := metadataFor(t)
	cols := make([]string, 0, len(meta.fields))
	for _, fi := range meta.fields {
		cols = append(cols, fi.dbTag)
	}
	for _, emb := range meta.embedded {
		cols = append(cols, columnsOf(emb.typ)...)
	}
	return cols
}

type fieldInfo struct {
	index int
	dbTag string
}

type embeddedInfo struct {
	index int
	typ   reflect.Type
}

// typeMetadata is the cached reflection result for one struct type.
type typeMetadata struct {
	fields   []fieldInfo
	embedded []embeddedInfo
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.embedded = append(meta.embedded, embeddedInfo{index: i, typ: field.Type})
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
		}
	}

	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct to a column map using "db" tags.
// Fields without a tag or tagged "-" are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, fi := range meta.fields {
		res[fi.dbTag] = rv.Field(fi.index).Interface()
	}
	for _, emb := range meta.embedded {
		for k, v := range StructToMap(rv.Field(emb.index).Interface()) {
			res[k] = v
		}
	}
	return res
}

// PickColumns returns the subset of data for columns.
func PickColumns(data map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		if v, ok := data[col]; ok {
			out[col] = v
		}
	}
	return out
}
