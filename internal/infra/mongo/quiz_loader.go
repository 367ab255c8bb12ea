package mongo

import (
	"context"
	"errors"
	"fmt"

	"geoquiz-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type coordinateDoc struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type questionDoc struct {
	ID          string          `bson:"id,omitempty"`
	Text        string          `bson:"text"`
	AnswerType  string          `bson:"answerType"`
	Coordinates []coordinateDoc `bson:"coordinates"`
}

// quizDoc is the stored shape of a template; _id is the quiz id.
type quizDoc struct {
	ID          string        `bson:"_id"`
	Name        string        `bson:"name"`
	Description string        `bson:"description"`
	Language    string        `bson:"language"`
	Private     bool          `bson:"private"`
	AuthorID    string        `bson:"authorId"`
	Questions   []questionDoc `bson:"questions"`
}

func (d quizDoc) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Language:    d.Language,
		Private:     d.Private,
		AuthorID:    d.AuthorID,
		Questions:   make([]domain.Question, 0, len(d.Questions)),
	}
	for _, q := range d.Questions {
		coords := make([]domain.Coordinate, 0, len(q.Coordinates))
		for _, c := range q.Coordinates {
			coords = append(coords, domain.Coordinate{Lat: c.Lat, Lng: c.Lng})
		}
		kind := domain.GeometryType(q.AnswerType)
		if kind == "" {
			kind = domain.GeometryPoint
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:     q.ID,
			Text:   q.Text,
			Answer: domain.Geometry{Type: kind, Coordinates: coords},
		})
	}
	return quiz
}

func fromDomain(q domain.Quiz) quizDoc {
	doc := quizDoc{
		ID:          q.ID,
		Name:        q.Name,
		Description: q.Description,
		Language:    q.Language,
		Private:     q.Private,
		AuthorID:    q.AuthorID,
	}
	for _, question := range q.Questions {
		qd := questionDoc{ID: question.ID, Text: question.Text, AnswerType: string(question.Answer.Type)}
		for _, c := range question.Answer.Coordinates {
			qd.Coordinates = append(qd.Coordinates, coordinateDoc{Lat: c.Lat, Lng: c.Lng})
		}
		doc.Questions = append(doc.Questions, qd)
	}
	return doc
}

// QuizLoader reads quiz templates from a MongoDB collection.
type QuizLoader struct {
	collection *mongo.Collection
}

func NewQuizLoader(client *mongo.Client, database, collection string) *QuizLoader {
	return &QuizLoader{collection: client.Database(database).Collection(collection)}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var doc quizDoc
	err := l.collection.FindOne(ctx, bson.M{"_id": quizID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz %s: %w", quizID, err)
	}
	return doc.toDomain(), nil
}

// SaveQuiz upserts a template.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	_, err := l.collection.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, fromDomain(quiz), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
	}
	return nil
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
