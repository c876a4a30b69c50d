// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account in the Undertone application.
// Users are only ever created through a completed signup verification,
// so a User row implies a confirmed email address.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"unique;not null" json:"username"`
	Email     string     `gorm:"unique;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	Interests []Interest `gorm:"many2many:user_interests" json:"interests,omitempty"`
	Posts     []Post     `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// Interest is a topic a user can follow. Names are stored lower-cased and
// are unique; rows are created lazily on first reference and never deleted.
type Interest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// InterestNames returns the user's interest names in attachment order.
func (u *User) InterestNames() []string {
	names := make([]string, 0, len(u.Interests))
	for _, i := range u.Interests {
		names = append(names, i.Name)
	}
	return names
}
