package maskscan

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

const createSummaryTable = `
CREATE TABLE IF NOT EXISTS census_summary (
	batch VARCHAR(36) NOT NULL,
	run VARCHAR(64) NOT NULL,
	sector INTEGER NOT NULL,
	masked_with_hits BIGINT NOT NULL,
	masked_without_hits BIGINT NOT NULL,
	unmasked_with_hits BIGINT NOT NULL,
	unmasked_without_hits BIGINT NOT NULL,
	unknown_with_hits BIGINT NOT NULL,
	unknown_without_hits BIGINT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const insertSummary = `
INSERT INTO census_summary (batch, run, sector,
	masked_with_hits, masked_without_hits,
	unmasked_with_hits, unmasked_without_hits,
	unknown_with_hits, unknown_without_hits)
VALUES (:batch, :run, :sector,
	:masked_with_hits, :masked_without_hits,
	:unmasked_with_hits, :unmasked_without_hits,
	:unknown_with_hits, :unknown_without_hits)`

type SummaryEntry struct {
	Batch  string `db:"batch"`
	Run    string `db:"run"`
	Sector int    `db:"sector"`
	Summary
}

// SummaryStore keeps census summaries, one row per sector and run.
type SummaryStore struct {
	DB *sqlx.DB
}

// OpenSummaryStore connects with driver "mysql" or "sqlite".
func OpenSummaryStore(driver string, dsn string) (*SummaryStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s database: %w", driver, err)
	}
	store, err := NewSummaryStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenSummaryStoreFromConfiguration uses summary_db_dsn, or for mysql
// without a DSN the host/user/pass/dbname fields.
func OpenSummaryStoreFromConfiguration(config Configuration) (*SummaryStore, error) {
	if config.SummaryDBDriver == "mysql" && config.SummaryDBDSN == "" {
		db, err := ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
		if err != nil {
			return nil, fmt.Errorf("error connecting to mysql database: %w", err)
		}
		return NewSummaryStore(db)
	}
	return OpenSummaryStore(config.SummaryDBDriver, config.SummaryDBDSN)
}

func NewSummaryStore(db *sqlx.DB) (*SummaryStore, error) {
	if _, err := db.Exec(createSummaryTable); err != nil {
		return nil, fmt.Errorf("error creating census_summary table: %w", err)
	}
	return &SummaryStore{DB: db}, nil
}

// SaveSummaries stores the sector summaries of a run under a new batch id,
// which is returned.
func (s *SummaryStore) SaveSummaries(run string, sums map[int]Summary) (string, error) {
	batch := uuid.NewString()
	tx, err := s.DB.Beginx()
	if err != nil {
		return "", err
	}
	for sector, sum := range sums {
		entry := SummaryEntry{Batch: batch, Run: run, Sector: sector, Summary: sum}
		if _, err := tx.NamedExec(insertSummary, entry); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("error inserting summary of sector %d: %w", sector, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return batch, nil
}

// Summaries reads back the sector summaries of a batch.
func (s *SummaryStore) Summaries(batch string) (map[int]Summary, error) {
	query := s.DB.Rebind(`SELECT batch, run, sector,
		masked_with_hits, masked_without_hits,
		unmasked_with_hits, unmasked_without_hits,
		unknown_with_hits, unknown_without_hits
		FROM census_summary WHERE batch = ? ORDER BY sector`)
	var entries []SummaryEntry
	if err := s.DB.Select(&entries, query, batch); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	sums := make(map[int]Summary, len(entries))
	for _, e := range entries {
		sums[e.Sector] = e.Summary
	}
	return sums, nil
}

func (s *SummaryStore) Close() error {
	return s.DB.Close()
}
