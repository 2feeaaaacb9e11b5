package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an authenticated employee of one of the two companies.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email     string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string `gorm:"size:255;not null" json:"-"`
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Company   string `gorm:"size:100" json:"company"`
	Role      string `gorm:"size:50;not null;default:'employee'" json:"role"`
}

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// SetPassword stores a bcrypt hash of the plaintext.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword compares the plaintext against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
