package models

import "github.com/google/uuid"

type Company struct {
	BaseModel
	Name       string `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	BusinessID string `json:"businessId,omitempty" gorm:"type:varchar(100)"`
	Industry   string `json:"industry,omitempty" gorm:"type:varchar(100)"`

	Addresses []CompanyAddress `json:"addresses,omitempty" gorm:"foreignKey:CompanyID"`
	Contacts  []User           `json:"contacts,omitempty" gorm:"many2many:company_contacts"`
	Projects  []Project        `json:"projects,omitempty" gorm:"foreignKey:CompanyID"`
}

type CompanyAddress struct {
	BaseModel
	CompanyID   uuid.UUID `json:"companyID" gorm:"type:uuid;not null;index"`
	AddressName string    `json:"addressName,omitempty" gorm:"type:varchar(100)"`
	Street      string    `json:"street,omitempty" gorm:"type:varchar(255)"`
	Zip         string    `json:"zip,omitempty" gorm:"type:varchar(20)"`
	City        string    `json:"city,omitempty" gorm:"type:varchar(100)"`
}
