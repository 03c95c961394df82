package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RoleList is a flat set of role strings stored as a JSON text column.
// There is no hierarchy: holding "admin" does not imply "user".
type RoleList []string

func (r RoleList) Has(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		r = RoleList{}
	}
	encoded, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func (r *RoleList) Scan(value interface{}) error {
	if value == nil {
		*r = RoleList{}
		return nil
	}
	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, r)
	case string:
		return json.Unmarshal([]byte(raw), r)
	default:
		return errors.New("unsupported role list column type")
	}
}

func (RoleList) GormDataType() string {
	return "text"
}

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Phone        string     `json:"phone,omitempty" gorm:"type:varchar(40)"`
	CompanyID    *uuid.UUID `json:"companyID,omitempty" gorm:"type:uuid;index"`
	Roles        RoleList   `json:"roles" gorm:"type:text;not null"`

	Company  *Company  `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Projects []Project `json:"projects,omitempty" gorm:"many2many:project_members"`
}
