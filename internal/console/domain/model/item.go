package model

import "time"

// Item is the persisted shape of one record in a named collection.
// Fields holds the scalar and media values; upserts replace it whole.
type Item struct {
	ID         string         `json:"id" bson:"_id"`
	Fields     map[string]any `json:"fields" bson:"fields"`
	CreateTime time.Time      `json:"createTime" bson:"createTime"`
	UpdateTime time.Time      `json:"updateTime" bson:"updateTime"`
}

// Clone returns a deep enough copy for snapshot delivery: the Fields map and
// any media URL slices are copied so subscribers cannot mutate stored state.
func (it Item) Clone() Item {
	out := it
	out.Fields = make(map[string]any, len(it.Fields))
	for k, v := range it.Fields {
		if urls, ok := v.([]string); ok {
			cp := make([]string, len(urls))
			copy(cp, urls)
			out.Fields[k] = cp
			continue
		}
		out.Fields[k] = v
	}
	return out
}

// StringField returns the named field as a string, or "" when absent or not
// a string.
func (it Item) StringField(name string) string {
	if s, ok := it.Fields[name].(string); ok {
		return s
	}
	return ""
}

// MediaField returns the named field as an ordered URL list. A single string
// value is treated as a one-element list, matching records written before
// multi-media support.
func (it Item) MediaField(name string) []string {
	switch v := it.Fields[name].(type) {
	case []string:
		cp := make([]string, len(v))
		copy(cp, v)
		return cp
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
