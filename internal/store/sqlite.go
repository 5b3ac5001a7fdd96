package store

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is the durable keyed backend. Runs are stored as flat
// field/value rows so the contract matches any key-value backend; the TTL
// window is re-applied on every write touching a run, extending it rather
// than fixing a wall-clock deadline.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(dbPath string, ttlSeconds int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS run_fields (
			run_id TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, field)
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS run_artifacts (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS run_expiry (
			run_id TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalog_cache (
			cache_key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec(`SELECT 1`); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, ttl: time.Duration(ttlSeconds) * time.Second}, nil
}

func (s *SQLiteStore) CreateRun(runID string, meta map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := map[string]string{
		"status":     StatusQueued,
		"started_at": "",
		"ended_at":   "",
	}
	for k, v := range meta {
		fields[k] = v
	}
	s.writeFields(runID, fields)
	s.touch(runID)
}

func (s *SQLiteStore) UpdateStatus(runID, status string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make(map[string]string, len(fields)+3)
	for k, v := range fields {
		merged[k] = v
	}
	merged["status"] = status

	now := time.Now().UTC().Format(time.RFC3339)
	if status == StatusRunning && s.field(runID, "started_at") == "" {
		merged["started_at"] = now
	}
	if isTerminal(status) && s.field(runID, "ended_at") == "" {
		merged["ended_at"] = now
	}

	s.writeFields(runID, merged)
	s.touch(runID)
}

func (s *SQLiteStore) AddStep(runID string, rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[store] failed to marshal step: %v", err)
		return
	}
	s.appendRow("run_steps", runID, data)
	s.touch(runID)
}

func (s *SQLiteStore) SetStepStatus(runID string, step int, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT seq, data FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		log.Printf("[store] failed to read steps: %v", err)
		return
	}
	type row struct {
		seq  int
		data string
	}
	var target *row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.seq, &r.data); err != nil {
			continue
		}
		var rec StepRecord
		if json.Unmarshal([]byte(r.data), &rec) == nil && rec.Step == step && !stepTerminal(rec.Status) {
			rec.Status = status
			if data, err := json.Marshal(rec); err == nil {
				target = &row{seq: r.seq, data: string(data)}
			}
			break
		}
	}
	rows.Close()
	if target == nil {
		return
	}
	if _, err := s.db.Exec(`UPDATE run_steps SET data = ? WHERE run_id = ? AND seq = ?`, target.data, runID, target.seq); err != nil {
		log.Printf("[store] failed to update step: %v", err)
	}
	s.touch(runID)
}

func (s *SQLiteStore) AddArtifact(runID string, a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(a)
	if err != nil {
		log.Printf("[store] failed to marshal artifact: %v", err)
		return
	}
	s.appendRow("run_artifacts", runID, data)
	s.touch(runID)
}

func (s *SQLiteStore) GetRun(runID string) RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()

	snap := RunSnapshot{
		Run:       map[string]string{},
		Steps:     []StepRecord{},
		Artifacts: []Artifact{},
	}

	rows, err := s.db.Query(`SELECT field, value FROM run_fields WHERE run_id = ?`, runID)
	if err == nil {
		for rows.Next() {
			var field, value string
			if rows.Scan(&field, &value) == nil {
				snap.Run[field] = value
			}
		}
		rows.Close()
	}

	rows, err = s.db.Query(`SELECT data FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err == nil {
		for rows.Next() {
			var data string
			var rec StepRecord
			if rows.Scan(&data) == nil && json.Unmarshal([]byte(data), &rec) == nil {
				snap.Steps = append(snap.Steps, rec)
			}
		}
		rows.Close()
	}

	rows, err = s.db.Query(`SELECT data FROM run_artifacts WHERE run_id = ? ORDER BY seq`, runID)
	if err == nil {
		for rows.Next() {
			var data string
			var a Artifact
			if rows.Scan(&data) == nil && json.Unmarshal([]byte(data), &a) == nil {
				snap.Artifacts = append(snap.Artifacts, a)
			}
		}
		rows.Close()
	}

	return snap
}

func (s *SQLiteStore) CacheCatalog(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := int64(0)
	if s.ttl > 0 {
		expires = time.Now().Add(s.ttl).Unix()
	}
	_, err := s.db.Exec(
		`INSERT INTO catalog_cache (cache_key, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, blob, expires)
	if err != nil {
		log.Printf("[store] failed to cache catalog: %v", err)
	}
}

func (s *SQLiteStore) CachedCatalog(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []byte
	var expires int64
	err := s.db.QueryRow(`SELECT data, expires_at FROM catalog_cache WHERE cache_key = ?`, key).Scan(&data, &expires)
	if err != nil {
		return nil
	}
	if expires > 0 && time.Now().Unix() > expires {
		s.db.Exec(`DELETE FROM catalog_cache WHERE cache_key = ?`, key)
		return nil
	}
	return data
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) writeFields(runID string, fields map[string]string) {
	for k, v := range fields {
		_, err := s.db.Exec(
			`INSERT INTO run_fields (run_id, field, value) VALUES (?, ?, ?)
			 ON CONFLICT(run_id, field) DO UPDATE SET value = excluded.value`,
			runID, k, v)
		if err != nil {
			log.Printf("[store] failed to write field %s: %v", k, err)
		}
	}
}

func (s *SQLiteStore) field(runID, field string) string {
	var value string
	err := s.db.QueryRow(`SELECT value FROM run_fields WHERE run_id = ? AND field = ?`, runID, field).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

func (s *SQLiteStore) appendRow(table, runID string, data []byte) {
	var next int
	s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM `+table+` WHERE run_id = ?`, runID).Scan(&next)
	if next == 0 {
		next = 1
	}
	if _, err := s.db.Exec(`INSERT INTO `+table+` (run_id, seq, data) VALUES (?, ?, ?)`, runID, next, data); err != nil {
		log.Printf("[store] failed to append to %s: %v", table, err)
	}
}

// touch re-applies the TTL window on every write so an active run never
// expires mid-flight.
func (s *SQLiteStore) touch(runID string) {
	if s.ttl <= 0 {
		return
	}
	expires := time.Now().Add(s.ttl).Unix()
	_, err := s.db.Exec(
		`INSERT INTO run_expiry (run_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET expires_at = excluded.expires_at`,
		runID, expires)
	if err != nil {
		log.Printf("[store] failed to touch run expiry: %v", err)
	}
}

func (s *SQLiteStore) purgeExpired() {
	if s.ttl <= 0 {
		return
	}
	now := time.Now().Unix()
	rows, err := s.db.Query(`SELECT run_id FROM run_expiry WHERE expires_at < ?`, now)
	if err != nil {
		return
	}
	var expired []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			expired = append(expired, id)
		}
	}
	rows.Close()
	for _, id := range expired {
		s.db.Exec(`DELETE FROM run_fields WHERE run_id = ?`, id)
		s.db.Exec(`DELETE FROM run_steps WHERE run_id = ?`, id)
		s.db.Exec(`DELETE FROM run_artifacts WHERE run_id = ?`, id)
		s.db.Exec(`DELETE FROM run_expiry WHERE run_id = ?`, id)
	}
}
