package repository

import (
	"context"

	"quiz-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResponseRepository struct {
	Col *mongo.Collection
}

func NewResponseRepository(db *mongo.Database) *ResponseRepository {
	return &ResponseRepository{Col: db.Collection("question_responses")}
}

func (r *ResponseRepository) Create(ctx context.Context, response *models.QuestionResponse) error {
	_, err := r.Col.InsertOne(ctx, response)
	return err
}

func (r *ResponseRepository) FindByAttempt(ctx context.Context, attemptID string) ([]models.QuestionResponse, error) {
	cur, err := r.Col.Find(ctx, bson.M{"attempt_id": attemptID},
		options.Find().SetSort(bson.M{"submitted_at": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var responses []models.QuestionResponse
	for cur.Next(ctx) {
		var resp models.QuestionResponse
		if err := cur.Decode(&resp); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, cur.Err()
}

func (r *ResponseRepository) FindByUserAndQuestion(ctx context.Context, userID, questionID string) ([]models.QuestionResponse, error) {
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID, "question_id": questionID},
		options.Find().SetSort(bson.M{"submitted_at": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var responses []models.QuestionResponse
	for cur.Next(ctx) {
		var resp models.QuestionResponse
		if err := cur.Decode(&resp); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, cur.Err()
}
