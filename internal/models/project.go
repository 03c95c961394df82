package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	BaseModel
	Title       string     `json:"title" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	ManagerID   *uuid.UUID `json:"managerID,omitempty" gorm:"type:uuid;index"`
	ProjectType string     `json:"projectType,omitempty" gorm:"type:varchar(100)"`
	ProjectCode string     `json:"projectCode,omitempty" gorm:"type:varchar(100)"`
	CompanyID   *uuid.UUID `json:"companyID,omitempty" gorm:"type:uuid;index"`
	Published   bool       `json:"published" gorm:"not null;default:false"`
	Finished    bool       `json:"finished" gorm:"not null;default:false"`

	Manager *User    `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Users   []User   `json:"users,omitempty" gorm:"many2many:project_members"`

	// Documents and Comments are the project's reference lists. Rows in the
	// join tables are owned by the relation service, which keeps them in
	// lock-step with the children's own project references.
	Documents []Document `json:"documents,omitempty" gorm:"many2many:project_documents"`
	Comments  []Comment  `json:"comments,omitempty" gorm:"many2many:project_comments"`
}
