package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/agrovihan/agrovihan/internal/carbon"
	"github.com/agrovihan/agrovihan/internal/logging"
)

// MemoryPath opens a private in-memory ledger.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS carbon_calculations (
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
	verification_record INTEGER NOT NULL DEFAULT 0,
	verified_details TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_carbon_calculations_email ON carbon_calculations(email);
`

const entryColumns = `doc_id, email, username, carbon_credits, co2_saved, credits_earned, carbon_score,
	total_credits, total_co2, details, timestamp, blockchain_verified, tx_hash, wallet_address,
	blockchain_timestamp, verification_record, verified_details`

// addedColumns are created on databases that predate them.
var addedColumns = []struct{ name, definition string }{
	{"verified_details", "TEXT NOT NULL DEFAULT ''"},
}

// SQLite is a Ledger backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// SQLiteOption customizes a SQLite ledger.
type SQLiteOption func(*SQLite)

// WithClock sets the clock used for document timestamps.
func WithClock(now func() time.Time) SQLiteOption {
	return func(l *SQLite) { l.now = now }
}

// OpenSQLite opens (creating if needed) the ledger database at path.
// Use MemoryPath for a throwaway ledger.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	if err := addMissingColumns(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &SQLite{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func addMissingColumns(db *sql.DB) error {
	for _, col := range addedColumns {
		var n int
		err := db.QueryRow(
			`SELECT COUNT(*) FROM pragma_table_info('carbon_calculations') WHERE name = ?`, col.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect ledger schema: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec(`ALTER TABLE carbon_calculations ADD COLUMN ` + col.name + ` ` + col.definition); err != nil {
			return fmt.Errorf("add ledger column %s: %w", col.name, err)
		}
	}
	return nil
}

// Close closes the database.
func (l *SQLite) Close() error {
	return l.db.Close()
}

// Save appends a document. The stored running totals are the sum of every
// earlier document for the email plus this one, read in the same transaction.
func (l *SQLite) Save(ctx context.Context, sub Submission) (Entry, error) {
	if strings.TrimSpace(sub.Email) == "" {
		return Entry{}, ErrEmptyEmail
	}

	log := logging.FromContext(ctx)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var priorCredits, priorCO2 float64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(carbon_credits), 0), COALESCE(SUM(co2_saved), 0)
		 FROM carbon_calculations WHERE email = ?`, sub.Email).
		Scan(&priorCredits, &priorCO2)
	if err != nil {
		return Entry{}, fmt.Errorf("sum prior calculations: %w", err)
	}

	entry := Entry{
		DocID:         uuid.NewString(),
		Email:         sub.Email,
		Username:      sub.Username,
		CarbonCredits: sub.CarbonCredits,
		CO2Saved:      sub.CO2Saved,
		CreditsEarned: sub.CarbonCredits,
		CarbonScore:   carbon.Score(sub.CO2Saved),
		TotalCredits:  priorCredits + sub.CarbonCredits,
		TotalCO2:      priorCO2 + sub.CO2Saved,
		Details:       sub.Details,
		Timestamp:     l.now().UTC(),
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit save: %w", err)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "ledger").
		Str("operation", "save").
		Str("doc_id", entry.DocID).
		Float64("total_credits", entry.TotalCredits).
		Msg("calculation saved")

	return entry, nil
}

// History returns every document for email, oldest first.
func (l *SQLite) History(ctx context.Context, email string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM carbon_calculations WHERE email = ? ORDER BY seq`, email)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Totals sums every document for email, verification records included.
func (l *SQLite) Totals(ctx context.Context, email string) (Totals, error) {
	totals := Totals{Email: email}
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(carbon_credits), 0), COALESCE(SUM(co2_saved), 0),
		        COALESCE(SUM(blockchain_verified), 0)
		 FROM carbon_calculations WHERE email = ?`, email).
		Scan(&totals.Documents, &totals.CarbonCredits, &totals.CO2Saved, &totals.Verified)
	if err != nil {
		return Totals{}, fmt.Errorf("sum calculations: %w", err)
	}
	return totals, nil
}

// Verify marks the most recent document for email as verified and appends a
// verification record carrying that document's credits, CO2 and details. The
// record also stores the details as a practice -> quantity map.
func (l *SQLite) Verify(ctx context.Context, email string, v Verification) (Entry, error) {
	if strings.TrimSpace(email) == "" {
		return Entry{}, ErrEmptyEmail
	}
	if strings.TrimSpace(v.TxHash) == "" {
		return Entry{}, ErrEmptyTxHash
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin verify: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM carbon_calculations WHERE email = ?
		 ORDER BY timestamp DESC, seq DESC LIMIT 1`, email)
	latest, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNoCalculations
	}
	if err != nil {
		return Entry{}, err
	}

	now := l.now().UTC()
	stamp := formatTime(now)
	_, err = tx.ExecContext(ctx,
		`UPDATE carbon_calculations
		 SET blockchain_verified = 1, tx_hash = ?, wallet_address = ?, blockchain_timestamp = ?
		 WHERE doc_id = ?`,
		v.TxHash, v.WalletAddress, stamp, latest.DocID)
	if err != nil {
		return Entry{}, fmt.Errorf("mark latest calculation verified: %w", err)
	}

	record := Entry{
		DocID:               uuid.NewString(),
		Email:               email,
		Username:            latest.Username,
		CarbonCredits:       latest.CarbonCredits,
		CO2Saved:            latest.CO2Saved,
		Details:             latest.Details,
		VerifiedDetails:     latest.Details.Map(),
		Timestamp:           now,
		BlockchainVerified:  true,
		TxHash:              v.TxHash,
		WalletAddress:       v.WalletAddress,
		BlockchainTimestamp: &now,
		VerificationRecord:  true,
	}
	if err := insertEntry(ctx, tx, record); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit verify: %w", err)
	}

	logging.FromContext(ctx).Info().
		Ctx(ctx).
		Str("component", "ledger").
		Str("operation", "verify").
		Str("verified_doc_id", latest.DocID).
		Str("tx_hash", v.TxHash).
		Msg("blockchain verification recorded")

	return record, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	verifiedDetails := ""
	if e.VerifiedDetails != nil {
		encoded, encErr := json.Marshal(e.VerifiedDetails)
		if encErr != nil {
			return fmt.Errorf("encode verified details: %w", encErr)
		}
		verifiedDetails = string(encoded)
	}
	blockchainStamp := ""
	if e.BlockchainTimestamp != nil {
		blockchainStamp = formatTime(*e.BlockchainTimestamp)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO carbon_calculations (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DocID, e.Email, e.Username, e.CarbonCredits, e.CO2Saved, e.CreditsEarned, e.CarbonScore,
		e.TotalCredits, e.TotalCO2, string(details), formatTime(e.Timestamp), boolToInt(e.BlockchainVerified),
		e.TxHash, e.WalletAddress, blockchainStamp, boolToInt(e.VerificationRecord), verifiedDetails)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e               Entry
		details         string
		timestamp       string
		blockchainStamp string
		verified        int
		verification    int
		verifiedDetails string
	)
	err := row.Scan(&e.DocID, &e.Email, &e.Username, &e.CarbonCredits, &e.CO2Saved, &e.CreditsEarned,
		&e.CarbonScore, &e.TotalCredits, &e.TotalCO2, &details, &timestamp, &verified, &e.TxHash,
		&e.WalletAddress, &blockchainStamp, &verification, &verifiedDetails)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan calculation: %w", err)
	}

	if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
		return Entry{}, fmt.Errorf("decode details of %s: %w", e.DocID, err)
	}
	if verifiedDetails != "" {
		if err := json.Unmarshal([]byte(verifiedDetails), &e.VerifiedDetails); err != nil {
			return Entry{}, fmt.Errorf("decode verified details of %s: %w", e.DocID, err)
		}
	}
	if e.Timestamp, err = parseTime(timestamp); err != nil {
		return Entry{}, fmt.Errorf("decode timestamp of %s: %w", e.DocID, err)
	}
	if blockchainStamp != "" {
		t, parseErr := parseTime(blockchainStamp)
		if parseErr != nil {
			return Entry{}, fmt.Errorf("decode blockchain timestamp of %s: %w", e.DocID, parseErr)
		}
		e.BlockchainTimestamp = &t
	}
	e.BlockchainVerified = verified != 0
	e.VerificationRecord = verification != 0
	return e, nil
}

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
