package models

import (
	"time"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusDeleted  = "deleted"

	LoginMethodMobile   = "mobile"
	LoginMethodFacebook = "facebook"

	UserTypeUser = "USER"

	deletedHandlePrefix = "deleted-"
)

// User is a registered principal of the mobile app.
type User struct {
	ID            string     `json:"id" dynamodbav:"id"`
	MobileNumber  string     `json:"mobile_number,omitempty" dynamodbav:"mobile_number,omitempty"`
	CountryCode   string     `json:"country_code,omitempty" dynamodbav:"country_code,omitempty"`
	EmailID       string     `json:"email_id,omitempty" dynamodbav:"email_id,omitempty"`
	FacebookID    string     `json:"-" dynamodbav:"facebook_id,omitempty"`
	FacebookToken string     `json:"-" dynamodbav:"facebook_token,omitempty"`
	LoginMethod   string     `json:"login_method" dynamodbav:"login_method"`
	Status        string     `json:"status" dynamodbav:"status"`
	UserType      string     `json:"user_type" dynamodbav:"user_type"`
	IsDeleted     bool       `json:"is_deleted" dynamodbav:"is_deleted"`
	Device        DeviceInfo `json:"device" dynamodbav:"device"`
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"created_at"`
	ModifiedAt    time.Time  `json:"modified_at" dynamodbav:"modified_at"`
}

func (u *User) GetPK() string {
	return "USER#" + u.ID
}

func (u *User) GetSK() string {
	return "METADATA"
}

// IsActive reports whether the principal may still hold a session.
func (u *User) IsActive() bool {
	return !u.IsDeleted && u.Status == UserStatusActive
}

// DeletedHandle is the contact handle written on soft delete. It frees the
// original number for a new registration while keeping history readable.
func DeletedHandle(id, mobile string) string {
	if mobile == "" {
		return deletedHandlePrefix + "user-" + id
	}
	return deletedHandlePrefix + mobile
}
