package repository

import (
	"context"
	"time"

	"quiz-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PerformanceRepository struct {
	Col *mongo.Collection
}

func NewPerformanceRepository(db *mongo.Database) *PerformanceRepository {
	return &PerformanceRepository{Col: db.Collection("performance_records")}
}

func (r *PerformanceRepository) FindByUserAndQuestion(ctx context.Context, userID, questionID string) (*models.PerformanceRecord, error) {
	var rec models.PerformanceRecord
	err := r.Col.FindOne(ctx, bson.M{"user_id": userID, "question_id": questionID}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByUser returns every record for the user, optionally narrowed to a topic.
func (r *PerformanceRepository) FindByUser(ctx context.Context, userID, topic string) ([]models.PerformanceRecord, error) {
	filter := bson.M{"user_id": userID}
	if topic != "" {
		filter["topic"] = topic
	}
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var records []models.PerformanceRecord
	for cur.Next(ctx) {
		var rec models.PerformanceRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, cur.Err()
}

// FindDue returns records whose next review date is at or before the given
// instant, most urgent first. limit <= 0 returns every due record.
func (r *PerformanceRepository) FindDue(ctx context.Context, userID, topic string, before time.Time, limit int64) ([]models.PerformanceRecord, error) {
	filter := bson.M{"user_id": userID, "next_review_date": bson.M{"$lte": before}}
	if topic != "" {
		filter["topic"] = topic
	}
	opts := options.Find().SetSort(bson.M{"priority_score": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var records []models.PerformanceRecord
	for cur.Next(ctx) {
		var rec models.PerformanceRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, cur.Err()
}

// Upsert writes the full record keyed by (user, question), creating it on
// first response.
func (r *PerformanceRepository) Upsert(ctx context.Context, rec *models.PerformanceRecord) error {
	filter := bson.M{"user_id": rec.UserID, "question_id": rec.QuestionID}
	update := bson.M{"$set": bson.M{
		"topic":                rec.Topic,
		"ease_factor":          rec.EaseFactor,
		"interval_days":        rec.IntervalDays,
		"repetitions":          rec.Repetitions,
		"correct_streak":       rec.CorrectStreak,
		"incorrect_streak":     rec.IncorrectStrk,
		"total_attempts":       rec.TotalAttempts,
		"correct_attempts":     rec.CorrectCount,
		"avg_response_time_ms": rec.AvgResponseMs,
		"priority_score":       rec.PriorityScore,
		"last_reviewed_at":     rec.LastReviewedAt,
		"next_review_date":     rec.NextReviewAt,
	}}
	_, err := r.Col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
