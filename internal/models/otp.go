package models

import "time"

const (
	OTPStatusPending  = "PENDING"
	OTPStatusVerified = "VERIFIED"

	// Each flow only ever sees challenges carrying its own purpose.
	OTPPurposeUser  = "user"
	OTPPurposeAdmin = "admin"
)

// OTPChallenge is one row of the OTP ledger. Rows are appended on issue and
// only ever move from PENDING to VERIFIED.
type OTPChallenge struct {
	TransactionID string    `json:"transaction_id" dynamodbav:"transaction_id"`
	MobileNumber  string    `json:"mobile_number" dynamodbav:"mobile_number"`
	CountryCode   string    `json:"country_code" dynamodbav:"country_code"`
	Purpose       string    `json:"purpose" dynamodbav:"purpose"`
	CodeHash      string    `json:"-" dynamodbav:"code_hash"`
	Status        string    `json:"status" dynamodbav:"status"`
	Attempts      int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
}

func (c *OTPChallenge) GetPK() string {
	return "OTP#" + c.TransactionID
}

func (c *OTPChallenge) GetSK() string {
	return "HANDLE#" + c.MobileNumber
}

// ExpiredAt reports whether the challenge is past its verification window.
func (c *OTPChallenge) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CreatedAt) > ttl
}
