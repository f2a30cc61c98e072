package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NuZard84/go-socket-typeflow/internal/models"
)

const database = "TypeFlow"

// TypingSentence is a stored practice text.
type TypingSentence struct {
	Story           string `bson:"story" json:"text"`
	TotalCharacters int    `bson:"totalCharacters" json:"totalCharacters"`
	TotalWords      int    `bson:"totalWords" json:"totalWords"`
	Hash            string `bson:"hash" json:"-"`
}

// Store wraps the MongoDB collections the tracker talks to: practice
// sentences (read) and finished-session results (write).
type Store struct {
	client *mongo.Client
}

// Connect dials MongoDB and verifies the connection.
func Connect(uri string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// RandomSentence samples one practice text.
func (s *Store) RandomSentence(ctx context.Context) (*TypingSentence, error) {
	collection := s.client.Database(database).Collection("typingsentences")

	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sentence TypingSentence
	if cursor.Next(ctx) {
		if err := cursor.Decode(&sentence); err != nil {
			return nil, err
		}
		return &sentence, nil
	}
	return nil, mongo.ErrNoDocuments
}

// SaveResult stores a finished session's final snapshot plus the raw
// submission. One document per session; callers do not retry.
func (s *Store) SaveResult(ctx context.Context, res models.SessionResult) error {
	collection := s.client.Database(database).Collection("sessionresults")

	doc := bson.M{
		"session_id":         res.SessionID,
		"owner_id":           res.OwnerID,
		"started_at":         res.StartedAt,
		"ended_at":           res.EndedAt,
		"gross_wpm":          res.Final.GrossWPM,
		"net_wpm":            res.Final.NetWPM,
		"accuracy":           res.Final.Accuracy,
		"correct_keystrokes": res.Final.CorrectChars,
		"error_keystrokes":   res.Final.Errors,
		"total_keystrokes":   res.Final.TotalChars,
		"text":               res.Text,
	}
	if len(res.Keystrokes) > 0 {
		doc["raw_keystrokes_json"] = string(res.Keystrokes)
	}

	_, err := collection.InsertOne(ctx, doc)
	return err
}
