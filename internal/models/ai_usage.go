package models

import (
	"time"

	"gorm.io/datatypes"
)

// AIUsage records one completed generation call. Rows are append-only:
// they are never updated and only removed by cascading user deletion.
type AIUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Identity that issued the call.
	User   *User  `gorm:"foreignKey:UserID"` // Associated user record.

	PostID *uint64 `gorm:"index"`             // Related post, when the call targeted one.
	Post   *Post   `gorm:"foreignKey:PostID"` // Associated post record.

	Feature  string `gorm:"type:text;not null;index"` // Feature kind tag, e.g. content_generation, enhance_expand.
	Provider string `gorm:"type:text;not null;index"` // Provider that served the call.
	Model    string `gorm:"type:text;not null;index"` // Model that produced the result.

	TokensUsed int64 `gorm:"not null;default:0"` // Token cost, 0 when the provider reported none.

	Options datatypes.JSON `gorm:"type:jsonb"` // Kind-specific request options snapshot.

	RequestedAt time.Time `gorm:"not null;index"`          // Request timestamp.
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"` // Row creation timestamp.
}

// TableName overrides the default table name.
func (AIUsage) TableName() string {
	return "ai_usages"
}
