package models

import "time"

// Profile is the app-level profile attached to a user. Only its presence
// matters to authentication: a missing profile means the client must prompt
// for completion.
type Profile struct {
	ID           string    `json:"id" dynamodbav:"id"`
	Name         string    `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Email        string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Avatar       string    `json:"avatar,omitempty" dynamodbav:"avatar,omitempty"`
	MobileNumber string    `json:"mobile_number" dynamodbav:"mobile_number"`
	Type         string    `json:"type" dynamodbav:"type"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
}

func (p *Profile) GetPK() string {
	return "PROFILE#" + p.ID
}

func (p *Profile) GetSK() string {
	return "METADATA"
}
