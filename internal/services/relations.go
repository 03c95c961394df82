package services

import (
	"context"

	"github.com/projectmanager/backend/internal/models"
	"gorm.io/gorm"
)

// RelationService keeps the parent Project's document/comment reference
// lists in lock-step with the child records. Create persists the child and
// appends its id to the parent's list; delete removes the child and pulls
// its id. Both pairs run inside one transaction, so no interleaving can
// observe a child without its back-reference or a reference without its
// child.
type RelationService struct {
	DB *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{DB: db}
}

func (s *RelationService) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		parent := models.Project{BaseModel: models.BaseModel{ID: doc.ProjectID}}
		return tx.Model(&parent).Association("Documents").Append(doc)
	})
}

func (s *RelationService) DeleteDocument(ctx context.Context, doc *models.Document) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Unlink first; a missing parent makes this a no-op, not an error.
		parent := models.Project{BaseModel: models.BaseModel{ID: doc.ProjectID}}
		if err := tx.Model(&parent).Association("Documents").Delete(doc); err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, "id = ?", doc.ID).Error
	})
}

func (s *RelationService) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		parent := models.Project{BaseModel: models.BaseModel{ID: comment.ProjectID}}
		return tx.Model(&parent).Association("Comments").Append(comment)
	})
}

func (s *RelationService) DeleteComment(ctx context.Context, comment *models.Comment) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent := models.Project{BaseModel: models.BaseModel{ID: comment.ProjectID}}
		if err := tx.Model(&parent).Association("Comments").Delete(comment); err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, "id = ?", comment.ID).Error
	})
}
