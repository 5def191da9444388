package repository

import (
	"context"
	"time"

	"quiz-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository struct {
	Col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Col: db.Collection("adaptive_sessions")}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.AdaptiveSession) error {
	_, err := r.Col.InsertOne(ctx, session)
	return err
}

// FindByID is owner-scoped: a session belonging to another user is not found.
func (r *SessionRepository) FindByID(ctx context.Context, userID, id string) (*models.AdaptiveSession, error) {
	var session models.AdaptiveSession
	err := r.Col.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context, userID string, f models.SessionFilter) ([]models.AdaptiveSession, error) {
	filter := bson.M{"user_id": userID}
	if f.Topic != "" {
		filter["topic"] = f.Topic
	}
	if f.Completed != nil {
		if *f.Completed {
			filter["completed_at"] = bson.M{"$ne": nil}
		} else {
			filter["completed_at"] = nil
		}
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var sessions []models.AdaptiveSession
	for cur.Next(ctx) {
		var s models.AdaptiveSession
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, cur.Err()
}

// MarkCompleted stamps completed_at once. A session already completed keeps
// its original timestamp; the call reports whether this write set it.
func (r *SessionRepository) MarkCompleted(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "user_id": userID, "completed_at": nil}
	res, err := r.Col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"completed_at": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
