package models

import "time"

// Subscription tier values stored on User.SubscriptionTier.
const (
	// TierFree is the default subscription tier.
	TierFree = "free"
	// TierPremium is the paid subscription tier.
	TierPremium = "premium"
)

// User represents an end-user account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Login name.
	Email    string `gorm:"type:text;index"`                // Contact email.
	Password string `gorm:"type:text;not null"`             // Bcrypt password hash.

	SubscriptionTier string `gorm:"type:text;not null;default:'free'"` // Quota tier: free or premium.

	TOTPSecret string `gorm:"type:text"` // TOTP secret when MFA is enabled, empty otherwise.

	Disabled bool `gorm:"not null;default:false"` // Blocks login when set.

	Posts        []Post    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"` // Authored posts.
	UsageRecords []AIUsage `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`   // AI usage rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Tier returns the user's quota tier, defaulting to free.
func (u *User) Tier() string {
	if u.SubscriptionTier == TierPremium {
		return TierPremium
	}
	return TierFree
}
