package mongodb

import (
	"context"
	"time"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ItemRepository persists collection items in MongoDB, one Mongo collection
// per console collection. Upserts replace the fields document whole.
type ItemRepository struct {
	db  *mongo.Database
	log logger.Logger
}

// NewItemRepository creates a MongoDB-backed item repository.
func NewItemRepository(db *mongo.Database, log logger.Logger) *ItemRepository {
	return &ItemRepository{db: db, log: log.WithComponent("mongodb")}
}

var _ repository.ItemRepository = (*ItemRepository)(nil)

// mongoItem is the stored document shape.
type mongoItem struct {
	ID         string         `bson:"_id"`
	Fields     map[string]any `bson:"fields"`
	CreateTime time.Time      `bson:"createTime"`
	UpdateTime time.Time      `bson:"updateTime"`
}

func (r *ItemRepository) List(ctx context.Context, collection string) ([]model.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createTime", Value: 1}})
	cur, err := r.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoItem
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, model.Item{
			ID:         d.ID,
			Fields:     normalizeFields(d.Fields),
			CreateTime: d.CreateTime,
			UpdateTime: d.UpdateTime,
		})
	}
	return items, nil
}

func (r *ItemRepository) Upsert(ctx context.Context, collection string, item model.Item) (string, bool, error) {
	filter := bson.M{"_id": item.ID}
	update := bson.M{
		"$set": bson.M{
			"fields":     item.Fields,
			"updateTime": item.UpdateTime,
		},
		"$setOnInsert": bson.M{
			"createTime": item.CreateTime,
		},
	}

	res, err := r.db.Collection(collection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", false, err
	}

	created := res.UpsertedCount > 0
	if created {
		r.log.Debugf("created %s/%s", collection, item.ID)
	} else {
		r.log.Debugf("replaced %s/%s", collection, item.ID)
	}
	return item.ID, created, nil
}

func (r *ItemRepository) Delete(ctx context.Context, collection string, id string) (bool, error) {
	res, err := r.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// normalizeFields rewrites BSON decode artifacts into the shapes the domain
// expects: primitive.A media lists become []string when every entry is one.
func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if arr, ok := v.(bson.A); ok {
			strs := make([]string, 0, len(arr))
			allStrings := true
			for _, e := range arr {
				s, ok := e.(string)
				if !ok {
					allStrings = false
					break
				}
				strs = append(strs, s)
			}
			if allStrings {
				out[k] = strs
				continue
			}
		}
		out[k] = v
	}
	return out
}
