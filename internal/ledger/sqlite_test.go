package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovihan/agrovihan/internal/carbon"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

func openTestLedger(t *testing.T) *SQLite {
	t.Helper()
	l, err := OpenSQLite(MemoryPath, WithClock(steppingClock()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func submission(email string, practices carbon.Practices) Submission {
	result := carbon.Calculate(practices)
	return Submission{
		Email:         email,
		Username:      "Ravi",
		CarbonCredits: result.Credits,
		CO2Saved:      result.TotalCO2,
		Details:       practices,
	}
}

func TestSQLite_SaveComputesRunningTotals(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	first, err := l.Save(ctx, submission("ravi@example.com", carbon.Practices{SolarPumps: 2}))
	require.NoError(t, err)
	assert.NotEmpty(t, first.DocID)
	assert.InDelta(t, 3.0, first.CarbonCredits, 1e-9)
	assert.InDelta(t, 3.0, first.CreditsEarned, 1e-9)
	assert.InDelta(t, 3.0, first.TotalCredits, 1e-9)
	assert.InDelta(t, 3000.0, first.TotalCO2, 1e-9)
	assert.Equal(t, 75, first.CarbonScore)

	second, err := l.Save(ctx, submission("ravi@example.com", carbon.Practices{TreesPlanted: 10}))
	require.NoError(t, err)
	assert.NotEqual(t, first.DocID, second.DocID)
	assert.InDelta(t, 3.21, second.TotalCredits, 1e-9)
	assert.InDelta(t, 3210.0, second.TotalCO2, 1e-9)
	assert.Equal(t, 50, second.CarbonScore)

	other, err := l.Save(ctx, submission("other@example.com", carbon.Practices{TreesPlanted: 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.021, other.TotalCredits, 1e-9, "totals are per email")
}

func TestSQLite_SaveRequiresEmail(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.Save(context.Background(), Submission{CarbonCredits: 1})
	assert.ErrorIs(t, err, ErrEmptyEmail)
}

func TestSQLite_HistoryAndTotals(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	practices := carbon.Practices{TreesPlanted: 10, OrganicFertilizerAcres: 2, SolarPumps: 1, RainwaterHarvesting: true}
	for range 3 {
		_, err := l.Save(ctx, submission("h@example.com", practices))
		require.NoError(t, err)
	}

	history, err := l.History(ctx, "h@example.com")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, practices, history[0].Details)
	assert.True(t, history[0].Timestamp.Before(history[2].Timestamp))

	totals, err := l.Totals(ctx, "h@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Documents)
	assert.InDelta(t, 6.39, totals.CarbonCredits, 1e-9)
	assert.InDelta(t, 6390.0, totals.CO2Saved, 1e-9)
	assert.Equal(t, 0, totals.Verified)

	empty, err := l.Totals(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Documents)
	assert.Zero(t, empty.CarbonCredits)

	none, err := l.History(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_Verify(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	_, err := l.Save(ctx, submission("v@example.com", carbon.Practices{TreesPlanted: 5}))
	require.NoError(t, err)
	latest, err := l.Save(ctx, submission("v@example.com", carbon.Practices{CowsReduced: 1}))
	require.NoError(t, err)

	record, err := l.Verify(ctx, "v@example.com", Verification{TxHash: "0xabc", WalletAddress: "0xwallet"})
	require.NoError(t, err)
	assert.True(t, record.VerificationRecord)
	assert.True(t, record.BlockchainVerified)
	assert.Equal(t, "0xabc", record.TxHash)
	assert.InDelta(t, latest.CarbonCredits, record.CarbonCredits, 1e-9)
	assert.Equal(t, latest.Details, record.Details)
	require.NotNil(t, record.BlockchainTimestamp)

	history, err := l.History(ctx, "v@example.com")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.False(t, history[0].BlockchainVerified, "older calculations are untouched")
	assert.True(t, history[1].BlockchainVerified, "latest calculation is flagged")
	assert.Equal(t, "0xwallet", history[1].WalletAddress)
	assert.False(t, history[1].VerificationRecord)
	assert.True(t, history[2].VerificationRecord)

	// Verification records carry credits, so they count toward the summed totals.
	totals, err := l.Totals(ctx, "v@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Documents)
	assert.Equal(t, 2, totals.Verified)
	assert.InDelta(t, 0.105+1.2+1.2, totals.CarbonCredits, 1e-9)
}

func TestSQLite_VerifyStoresDetailMap(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	practices := carbon.Practices{TreesPlanted: 10, SolarPumps: 1, RainwaterHarvesting: true}
	saved, err := l.Save(ctx, submission("map@example.com", practices))
	require.NoError(t, err)
	assert.Nil(t, saved.VerifiedDetails, "plain calculations carry no detail map")

	record, err := l.Verify(ctx, "map@example.com", Verification{TxHash: "0xdef"})
	require.NoError(t, err)
	require.NotNil(t, record.VerifiedDetails)
	assert.InDelta(t, 1.0, record.VerifiedDetails[carbon.PracticeRainwaterHarvesting], 1e-9)
	assert.InDelta(t, 10.0, record.VerifiedDetails[carbon.PracticeTreesPlanted], 1e-9)
	assert.InDelta(t, 0.0, record.VerifiedDetails[carbon.PracticeCowsReduced], 1e-9)
	assert.Len(t, record.VerifiedDetails, 8)

	history, err := l.History(ctx, "map@example.com")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].VerifiedDetails)
	assert.Equal(t, record.VerifiedDetails, history[1].VerifiedDetails)
}

func TestSQLite_OpenAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE carbon_calculations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		doc_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		carbon_credits REAL NOT NULL DEFAULT 0,
		co2_saved REAL NOT NULL DEFAULT 0,
		credits_earned REAL NOT NULL DEFAULT 0,
		carbon_score INTEGER NOT NULL DEFAULT 0,
		total_credits REAL NOT NULL DEFAULT 0,
		total_co2 REAL NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '{}',
		timestamp TEXT NOT NULL,
		blockchain_verified INTEGER NOT NULL DEFAULT 0,
		tx_hash TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		blockchain_timestamp TEXT NOT NULL DEFAULT '',
		verification_record INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	_, err = l.Save(ctx, submission("old@example.com", carbon.Practices{RainwaterHarvesting: true}))
	require.NoError(t, err)
	record, err := l.Verify(ctx, "old@example.com", Verification{TxHash: "0x1"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, record.VerifiedDetails[carbon.PracticeRainwaterHarvesting], 1e-9)
}

func TestSQLite_VerifyErrors(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	_, err := l.Verify(ctx, "", Verification{TxHash: "0x1"})
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = l.Verify(ctx, "a@example.com", Verification{})
	assert.ErrorIs(t, err, ErrEmptyTxHash)

	_, err = l.Verify(ctx, "a@example.com", Verification{TxHash: "0x1"})
	assert.ErrorIs(t, err, ErrNoCalculations)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger", "agrovihan.db")

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	saved, err := l.Save(ctx, submission("p@example.com", carbon.Practices{NoTillAcres: 1}))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	history, err := reopened.History(ctx, "p@example.com")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, saved.DocID, history[0].DocID)
}

func TestSQLite_ImplementsLedger(t *testing.T) {
	var _ Ledger = openTestLedger(t)
}
