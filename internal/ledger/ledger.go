// Package ledger is the remote, append-only store of calculation documents.
//
// Every save appends a document; the only in-place update is the blockchain
// verification flag set by Verify. Running totals are never maintained
// separately: they are recomputed by summing a user's history.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/agrovihan/agrovihan/internal/carbon"
)

// Sentinel errors.
var (
	// ErrEmptyEmail is returned when a document has no owner.
	ErrEmptyEmail = errors.New("ledger: email is required")

	// ErrNoCalculations is returned by Verify when the user has no documents.
	ErrNoCalculations = errors.New("ledger: no calculations recorded for email")

	// ErrEmptyTxHash is returned by Verify without a transaction hash.
	ErrEmptyTxHash = errors.New("ledger: transaction hash is required")
)

// Ledger is the remote store of calculation documents.
type Ledger interface {
	// Save appends a calculation document and returns it as stored.
	Save(ctx context.Context, sub Submission) (Entry, error)
	// History returns every document for email, oldest first.
	History(ctx context.Context, email string) ([]Entry, error)
	// Totals sums every document for email.
	Totals(ctx context.Context, email string) (Totals, error)
	// Verify attaches blockchain verification to the latest document and
	// appends a verification record. It returns the new record.
	Verify(ctx context.Context, email string, v Verification) (Entry, error)
}

// Submission is the payload of a save.
type Submission struct {
	Email         string           `json:"email"`
	Username      string           `json:"username"`
	CarbonCredits float64          `json:"carbonCredits"`
	CO2Saved      float64          `json:"co2Saved"`
	Details       carbon.Practices `json:"details"`
}

// Entry is a stored document.
type Entry struct {
	DocID         string           `json:"id"`
	Email         string           `json:"email"`
	Username      string           `json:"username"`
	CarbonCredits float64          `json:"carbonCredits"`
	CO2Saved      float64          `json:"co2Saved"`
	CreditsEarned float64          `json:"creditsEarned"`
	CarbonScore   int              `json:"carbonScore"`
	TotalCredits  float64          `json:"totalCredits"`
	TotalCO2      float64          `json:"totalCO2"`
	Details       carbon.Practices `json:"details"`
	// Timestamp is the ledger's clock at save time.
	Timestamp time.Time `json:"timestamp"`

	BlockchainVerified  bool       `json:"blockchainVerified"`
	TxHash              string     `json:"txHash,omitempty"`
	WalletAddress       string     `json:"walletAddress,omitempty"`
	BlockchainTimestamp *time.Time `json:"blockchainTimestamp,omitempty"`
	VerificationRecord  bool       `json:"verificationRecord"`

	// VerifiedDetails is set on verification records only.
	VerifiedDetails map[string]float64 `json:"verifiedDetails,omitempty"`
}

// Totals is the sum over a user's documents.
type Totals struct {
	Email         string  `json:"email"`
	Documents     int     `json:"documents"`
	CarbonCredits float64 `json:"carbonCredits"`
	CO2Saved      float64 `json:"co2Saved"`
	Verified      int     `json:"verified"`
}

// Verification identifies the on-chain transaction recording a calculation.
type Verification struct {
	TxHash        string `json:"txHash"`
	WalletAddress string `json:"walletAddress"`
}
