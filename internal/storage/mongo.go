package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/econodata/noticias-harvester/internal/domain"
)

const (
	defaultMongoDatabase   = "Econodata"
	defaultMongoCollection = "noticias"
	mongoDuplicateKeyCode  = 11000
)

// MongoStore keeps articles in one collection with a unique (source_id, url) index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and ensures the collection indexes.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo store requires a connection string")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("source_url_unique"),
		},
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "published_at", Value: -1}},
			Options: options.Index().SetName("source_published"),
		},
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetName("source_title"),
		},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) MaxPublishedAt(ctx context.Context, sourceID string) (time.Time, bool, error) {
	var latest domain.Article
	err := s.coll.FindOne(ctx,
		bson.M{"source_id": sourceID},
		options.FindOne().SetSort(bson.D{{Key: "published_at", Value: -1}}),
	).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("mongo max published_at for %q: %w", sourceID, err)
	}
	return latest.PublishedAt.UTC(), true, nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	if err := validateBatch(sourceID, articles); err != nil {
		return 0, err
	}

	docs := make([]any, len(articles))
	for i, a := range articles {
		docs[i] = normalizeArticle(a)
	}

	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}

	dups, ok := duplicateOnly(err)
	if !ok {
		return 0, fmt.Errorf("mongo insert batch for %q: %w", sourceID, err)
	}
	return len(docs) - dups, nil
}

// duplicateOnly reports how many writes failed, when every failure is a
// duplicate-key error.
func duplicateOnly(err error) (int, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return 0, false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != mongoDuplicateKeyCode {
			return 0, false
		}
	}
	return len(bwe.WriteErrors), true
}

func (s *MongoStore) Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(values) == 0 {
		return known, nil
	}

	field := "url"
	if key == domain.DedupByTitle {
		field = "title"
	}

	cur, err := s.coll.Find(ctx,
		bson.M{"source_id": sourceID, field: bson.M{"$in": values}},
		options.Find().SetProjection(bson.M{field: 1, "_id": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo known %s for %q: %w", key, sourceID, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo known %s for %q: %w", key, sourceID, err)
	}
	for _, d := range docs {
		if v, ok := d[field].(string); ok {
			known[v] = struct{}{}
		}
	}
	return known, nil
}

func (s *MongoStore) ListArticles(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	page := Page{Page: q.Page, PageSize: q.PageSize, Articles: []domain.Article{}}

	filter := bson.M{}
	if q.SourceID != "" {
		filter["source_id"] = q.SourceID
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return page, fmt.Errorf("mongo count articles: %w", err)
	}
	page.Total = int(total)

	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.PageSize)),
	)
	if err != nil {
		return page, fmt.Errorf("mongo list articles: %w", err)
	}
	if err := cur.All(ctx, &page.Articles); err != nil {
		return page, fmt.Errorf("mongo decode articles: %w", err)
	}
	for i := range page.Articles {
		page.Articles[i].PublishedAt = page.Articles[i].PublishedAt.UTC()
	}
	return page, nil
}
