package models

import "github.com/google/uuid"

type Document struct {
	BaseModel
	Description string    `json:"description,omitempty" gorm:"type:text"`
	ProjectID   uuid.UUID `json:"projectID" gorm:"type:uuid;not null;index"`
	FileName    string    `json:"fileName" gorm:"type:varchar(255);not null"`
	MimeType    string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	StoragePath string    `json:"storagePath" gorm:"type:text;not null"`
	Accepted    bool      `json:"accepted" gorm:"not null;default:false"`

	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}
