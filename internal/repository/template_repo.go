package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"in8/internal/model"
)

const currentTemplateID = "current"

// TemplateRepo stores the single current survey template
type TemplateRepo interface {
	GetCurrent(ctx context.Context) (*model.SurveyTemplate, error)
	PutCurrent(ctx context.Context, tpl *model.SurveyTemplate) error
}

type templateRepo struct {
	collection *mongo.Collection
}

// NewTemplateRepo creates a new template repository
func NewTemplateRepo(db *mongo.Database) TemplateRepo {
	return &templateRepo{
		collection: db.Collection("survey_templates"),
	}
}

// GetCurrent returns nil, nil when no template was ever published
func (r *templateRepo) GetCurrent(ctx context.Context) (*model.SurveyTemplate, error) {
	var doc model.TemplateDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": currentTemplateID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tpl := doc.Data
	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = doc.UpdatedAt
	}
	return &tpl, nil
}

func (r *templateRepo) PutCurrent(ctx context.Context, tpl *model.SurveyTemplate) error {
	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = time.Now()
	}
	doc := model.TemplateDocument{
		ID:        currentTemplateID,
		Data:      *tpl,
		UpdatedAt: tpl.UpdatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": currentTemplateID}, doc, opts)
	return err
}
