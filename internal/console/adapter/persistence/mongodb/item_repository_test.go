package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNormalizeFields(t *testing.T) {
	in := map[string]any{
		"name":      "雲端數位科技",
		"images":    bson.A{"uploads/1_a.png", "uploads/2_b.png"},
		"videoUrls": bson.A{},
		"mixed":     bson.A{"https://example.com/a.png", int64(7)},
		"capacity":  int32(12),
	}

	out := normalizeFields(in)

	assert.Equal(t, "雲端數位科技", out["name"])
	assert.Equal(t, []string{"uploads/1_a.png", "uploads/2_b.png"}, out["images"])
	assert.Equal(t, []string{}, out["videoUrls"])
	assert.Equal(t, bson.A{"https://example.com/a.png", int64(7)}, out["mixed"])
	assert.Equal(t, int32(12), out["capacity"])
}

func TestNormalizeFieldsEmpty(t *testing.T) {
	assert.Empty(t, normalizeFields(nil))
	assert.Empty(t, normalizeFields(map[string]any{}))
}
