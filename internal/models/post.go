package models

import "time"

// Post status values.
const (
	// PostStatusDraft marks an unpublished post.
	PostStatusDraft = "draft"
	// PostStatusPublished marks a published post.
	PostStatusPublished = "published"
)

// Post is a blog post owned by a user.
type Post struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthorID uint64 `gorm:"not null;index"`      // Owning user ID.
	Author   *User  `gorm:"foreignKey:AuthorID"` // Associated user record.

	Title   string `gorm:"type:text;not null"`                 // Post title.
	Content string `gorm:"type:text;not null"`                 // Post body (editor HTML/markdown).
	Status  string `gorm:"type:text;not null;default:'draft'"` // draft or published.

	PublishedAt *time.Time // Set when the post is first published.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
