// Package mongo backs the message store, the assignment commit sink, and
// the reference-data collections.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// Collection names, shared with the seeder.
const (
	CollTweets       = "tweets"
	CollCountries    = "countries"
	CollContinents   = "continents"
	CollAdm1         = "adm1"
	CollCountryNames = "country_names"
	CollAdm1Names    = "adm1_names"
	CollCommonWords  = "common_words"
)

// Store wraps the Mongo database holding tweets and reference data.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(database), logger: logger}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EachMessage streams the messages with a timestamp in [start, end] in
// chronological order. Undecodable documents are skipped with a warning;
// they must not abort the window.
func (s *Store) EachMessage(ctx context.Context, start, end time.Time, fn func(domain.Message) error) error {
	filter := bson.M{"date": bson.M{"$gte": start, "$lte": end}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.db.Collection(CollTweets).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var msg domain.Message
		if err := cursor.Decode(&msg); err != nil {
			s.logger.Warn("skipping undecodable message", "error", err)
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate messages: %w", err)
	}
	return nil
}

// InsertMessage upserts an intake message by id; redelivered intake
// payloads overwrite rather than duplicate.
func (s *Store) InsertMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.db.Collection(CollTweets).ReplaceOne(
		ctx,
		bson.M{"_id": msg.ID},
		msg,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

// CommitAssignments writes the resolved locations of each message in one
// bulk operation.
func (s *Store) CommitAssignments(ctx context.Context, assignments map[string][]domain.ResolvedLocation) error {
	if len(assignments) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(assignments))
	for id, locations := range assignments {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"locations": locations}}))
	}
	if _, err := s.db.Collection(CollTweets).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("commit assignments: %w", err)
	}
	return nil
}

// ReadLocations returns the committed resolved locations of one message.
func (s *Store) ReadLocations(ctx context.Context, id string) ([]domain.ResolvedLocation, error) {
	var doc struct {
		Locations []domain.ResolvedLocation `bson:"locations"`
	}
	err := s.db.Collection(CollTweets).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("read locations for %s: %w", id, err)
	}
	return doc.Locations, nil
}

// ReplaceCollection drops a reference collection and repopulates it. Used
// by the seeder; reference data is replaced wholesale, never patched.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, docs []any) error {
	coll := s.db.Collection(collection)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", collection, err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	return nil
}
