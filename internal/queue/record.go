package queue

import (
	"time"

	"github.com/agrovihan/agrovihan/internal/carbon"
)

// Input is a calculation waiting to be queued.
type Input struct {
	Email         string           `json:"email"`
	Username      string           `json:"username"`
	CarbonCredits float64          `json:"carbonCredits"`
	CO2Saved      float64          `json:"co2Saved"`
	Details       carbon.Practices `json:"details"`
}

// Record is a queued calculation.
type Record struct {
	// ID is a ULID assigned locally; it never matches a ledger document id.
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Username      string           `json:"username"`
	CarbonCredits float64          `json:"carbonCredits"`
	CO2Saved      float64          `json:"co2Saved"`
	Details       carbon.Practices `json:"details"`
	Synced        bool             `json:"synced"`
	// CreatedAt is the local clock at enqueue time.
	CreatedAt time.Time `json:"createdAt"`
}

// Input returns the calculation payload of r.
func (r Record) Input() Input {
	return Input{
		Email:         r.Email,
		Username:      r.Username,
		CarbonCredits: r.CarbonCredits,
		CO2Saved:      r.CO2Saved,
		Details:       r.Details,
	}
}

// NewInput builds a queue input from an owner and a calculation.
func NewInput(email, username string, practices carbon.Practices, result carbon.Result) Input {
	return Input{
		Email:         email,
		Username:      username,
		CarbonCredits: result.Credits,
		CO2Saved:      result.TotalCO2,
		Details:       practices,
	}
}
