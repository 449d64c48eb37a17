package models

import "time"

const (
	AdminStatusActive = "active"
)

type Admin struct {
	ID     string `json:"id" dynamodbav:"id"`
	Email  string `json:"email" dynamodbav:"email"`
	Name   string `json:"name" dynamodbav:"name"`
	Role   string `json:"role" dynamodbav:"role"`
	Status string `json:"status" dynamodbav:"status"`
}

func (a *Admin) GetPK() string {
	return "ADMIN#" + a.Email
}

func (a *Admin) GetSK() string {
	return "METADATA"
}

func (a *Admin) IsActive() bool {
	return a.Status == AdminStatusActive
}

// AdminSession is the server-side record behind the admin session cookie.
type AdminSession struct {
	ID        string    `json:"id"`
	Admin     Admin     `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
