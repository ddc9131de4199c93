package entities

import (
	"time"

	"github.com/google/uuid"
)

// SDR represents a sales development rep. Rows are provisioned by operators;
// the pipeline only reads them.
type SDR struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Slug       string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email      *string   `json:"email,omitempty" gorm:"type:varchar(255)"`
	CRMOwnerID *string   `json:"crm_owner_id,omitempty" gorm:"column:crm_owner_id;type:varchar(64);index"`
	PartnerRep *string   `json:"partner_rep,omitempty" gorm:"type:varchar(255)"`
	IsActive   bool      `json:"is_active" gorm:"default:true;not null"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SDR) TableName() string {
	return "sdrs"
}

// OwnerID returns the CRM owner id, or "" when the rep is not linked to the CRM
func (s *SDR) OwnerID() string {
	if s.CRMOwnerID == nil {
		return ""
	}
	return *s.CRMOwnerID
}
