package models

import "github.com/google/uuid"

type Comment struct {
	BaseModel
	Title      string     `json:"title" gorm:"type:varchar(255);not null"`
	Body       string     `json:"body" gorm:"type:text;not null"`
	AuthorID   uuid.UUID  `json:"authorID" gorm:"type:uuid;not null;index"`
	ProjectID  uuid.UUID  `json:"projectID" gorm:"type:uuid;not null;index"`
	DocumentID *uuid.UUID `json:"documentID,omitempty" gorm:"type:uuid;index"`
	IsGlobal   bool       `json:"isGlobal" gorm:"not null;default:true"`

	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Project  *Project  `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Document *Document `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
}
