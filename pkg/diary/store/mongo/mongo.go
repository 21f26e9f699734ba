// Package mongo is the MongoDB document store backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
)

// Collection names
const (
	CollectionEntries  = "entries"
	CollectionLearning = "user_learning"
)

// DefaultDatabase is used when the URI carries no database path.
const DefaultDatabase = "diary"

// maxUpsertAttempts bounds the retries after a lost first-insert race.
const maxUpsertAttempts = 5

var _ store.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client   *mongo.Client
	entries  *mongo.Collection
	learning *mongo.Collection
}

type learningDoc struct {
	UserID            string              `bson:"userId"`
	Corrections       []correctionDoc     `bson:"corrections"`
	PreferredKeywords map[string][]string `bson:"preferredKeywords"`
	LastUpdated       time.Time           `bson:"lastUpdated"`
}

type correctionDoc struct {
	From  string `bson:"from"`
	To    string `bson:"to"`
	Count int    `bson:"count"`
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", internalerr.ErrStoreUnavailable, err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", internalerr.ErrStoreUnavailable, err)
	}

	s := newStore(client, DatabaseName(uri))
	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func newStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:   client,
		entries:  db.Collection(CollectionEntries),
		learning: db.Collection(CollectionLearning),
	}
}

// DatabaseName extracts the database name from a MongoDB URI path:
// mongodb://localhost:27017/diary?authSource=admin -> diary.
func DatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultDatabase
}

// EnsureIndexes creates the indexes the store relies on. The unique userId
// index is what turns concurrent first-inserts into retryable duplicates.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.learning.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("learning index: %w", err)
	}
	_, err = s.entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "analysis.subCategory", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("entry indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes both collections. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.entries.Drop(ctx); err != nil {
		return err
	}
	return s.learning.Drop(ctx)
}

func (s *Store) CreateEntry(ctx context.Context, e store.Entry) (store.Entry, error) {
	if e.UserID == "" {
		return store.Entry{}, fmt.Errorf("%w: entry without user", internalerr.ErrInvalidInput)
	}
	e.ID = ulid.Make().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.CreatedAt = e.CreatedAt.Truncate(time.Millisecond)
	e.UpdatedAt = e.CreatedAt

	if _, err := s.entries.InsertOne(ctx, e); err != nil {
		return store.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (store.Entry, error) {
	var e store.Entry
	err := s.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return fromBSON(e), nil
}

func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]store.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.entries.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]store.Entry, 0)
	for cur.Next(ctx) {
		var e store.Entry
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, fromBSON(e))
	}
	return out, cur.Err()
}

func (s *Store) DeleteEntries(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.entries.DeleteMany(ctx, bson.M{"userId": userID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) DeleteUserEntries(ctx context.Context, userID string) (int, error) {
	res, err := s.entries.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("clear entries of %s: %w", userID, err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) UpdateEntry(ctx context.Context, id string, u store.EntryUpdate) (store.Entry, error) {
	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	if u.Content != nil {
		set["content"] = *u.Content
	}
	if u.Analysis != nil {
		set["analysis"] = u.Analysis
	}

	var e store.Entry
	err := s.entries.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return fromBSON(e), nil
}

func (s *Store) CountByCategory(ctx context.Context, userID, sub string) (int, error) {
	n, err := s.entries.CountDocuments(ctx, bson.M{"userId": userID, "analysis.subCategory": sub})
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return int(n), nil
}

func (s *Store) GetLearning(ctx context.Context, userID string) (store.LearningRecord, error) {
	var doc learningDoc
	err := s.learning.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.LearningRecord{}, fmt.Errorf("learning %s: %w", userID, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.LearningRecord{}, fmt.Errorf("get learning: %w", err)
	}
	return doc.record(), nil
}

func (s *Store) CreateLearning(ctx context.Context, rec store.LearningRecord) error {
	for sub := range rec.PreferredKeywords {
		if err := checkFieldKey(sub); err != nil {
			return err
		}
	}
	_, err := s.learning.InsertOne(ctx, toDoc(rec))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("learning %s: %w", rec.UserID, internalerr.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create learning: %w", err)
	}
	return nil
}

// IncrementCorrection bumps an existing pair in place with a positional $inc.
// When the pair is missing it pushes a new element, guarded so that two
// writers cannot both push the same pair. A guarded upsert that races with
// another insert hits the unique index and the whole step is retried.
func (s *Store) IncrementCorrection(ctx context.Context, userID, from, to string, at time.Time) error {
	at = at.UTC().Truncate(time.Millisecond)
	pair := bson.M{"from": from, "to": to}

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		res, err := s.learning.UpdateOne(ctx,
			bson.M{"userId": userID, "corrections": bson.M{"$elemMatch": pair}},
			bson.M{
				"$inc": bson.M{"corrections.$.count": 1},
				"$set": bson.M{"lastUpdated": at},
			})
		if err != nil {
			return fmt.Errorf("increment correction: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		_, err = s.learning.UpdateOne(ctx,
			bson.M{"userId": userID, "corrections": bson.M{"$not": bson.M{"$elemMatch": pair}}},
			bson.M{
				"$push":        bson.M{"corrections": correctionDoc{From: from, To: to, Count: 1}},
				"$set":         bson.M{"lastUpdated": at},
				"$setOnInsert": bson.M{"preferredKeywords": bson.M{}},
			},
			options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("push correction: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: increment correction for %s kept racing", internalerr.ErrStoreUnavailable, userID)
}

// UnionKeywords adds keywords with $addToSet, creating the record on first use.
func (s *Store) UnionKeywords(ctx context.Context, userID, sub string, keywords []string, at time.Time) error {
	if err := checkFieldKey(sub); err != nil {
		return err
	}
	at = at.UTC().Truncate(time.Millisecond)
	if keywords == nil {
		keywords = []string{}
	}

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		_, err := s.learning.UpdateOne(ctx,
			bson.M{"userId": userID},
			bson.M{
				"$addToSet":    bson.M{"preferredKeywords." + sub: bson.M{"$each": keywords}},
				"$set":         bson.M{"lastUpdated": at},
				"$setOnInsert": bson.M{"corrections": bson.A{}},
			},
			options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("union keywords: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: union keywords for %s kept racing", internalerr.ErrStoreUnavailable, userID)
}

// checkFieldKey rejects names that would be read as a path or operator.
func checkFieldKey(key string) error {
	if key == "" || strings.Contains(key, ".") || strings.HasPrefix(key, "$") {
		return fmt.Errorf("%w: keyword category %q", internalerr.ErrInvalidInput, key)
	}
	return nil
}

func (d learningDoc) record() store.LearningRecord {
	rec := store.NewLearningRecord(d.UserID, d.LastUpdated.UTC())
	for _, c := range d.Corrections {
		rec.Corrections = append(rec.Corrections, store.Correction{From: c.From, To: c.To, Count: c.Count})
	}
	for sub, kws := range d.PreferredKeywords {
		rec.PreferredKeywords[sub] = append([]string{}, kws...)
	}
	return rec
}

func toDoc(rec store.LearningRecord) learningDoc {
	d := learningDoc{
		UserID:            rec.UserID,
		Corrections:       make([]correctionDoc, 0, len(rec.Corrections)),
		PreferredKeywords: make(map[string][]string, len(rec.PreferredKeywords)),
		LastUpdated:       rec.LastUpdated.UTC().Truncate(time.Millisecond),
	}
	for _, c := range rec.Corrections {
		d.Corrections = append(d.Corrections, correctionDoc{From: c.From, To: c.To, Count: c.Count})
	}
	for sub, kws := range rec.PreferredKeywords {
		d.PreferredKeywords[sub] = append([]string{}, kws...)
	}
	return d
}

// fromBSON normalizes decoded timestamps, which the driver returns in local time.
func fromBSON(e store.Entry) store.Entry {
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e
}
