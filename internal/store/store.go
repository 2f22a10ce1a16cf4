// Package store persists consultation records, transcripts, and
// uploaded referral letters in SQLite for the HTTP API. Conversation
// checkpoints live in the checkpoint package; this store holds the
// clinician-facing view.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// ErrReferralUsed indicates the referral token was already consumed by
// an earlier conversation.
var ErrReferralUsed = errors.New("store: referral token already used")

// Consultation statuses.
const (
	StatusActive             = "active"
	StatusCompleted          = "completed"
	StatusTerminatedSafety   = "terminated_safety"
	StatusTerminatedOffTopic = "terminated_off_topic"
)

// Referral is a persisted referral letter upload.
type Referral struct {
	Token          string    `json:"token"`
	PatientName    string    `json:"patient_name"`
	DoctorName     string    `json:"doctor_name,omitempty"`
	ReferralDate   string    `json:"referral_date,omitempty"`
	ReferredTo     string    `json:"referred_to,omitempty"`
	ReferralReason string    `json:"referral_reason,omitempty"`
	Text           string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UsedAt         time.Time `json:"used_at,omitzero"`
}

// Consultation is the clinician-facing record of one conversation.
type Consultation struct {
	ID                string    `json:"id"`
	PatientName       string    `json:"patient_name,omitempty"`
	ReferralToken     string    `json:"referral_token,omitempty"`
	Status            string    `json:"status"`
	TerminateReason   string    `json:"terminate_reason,omitempty"`
	UrgencyLevel      string    `json:"urgency_level,omitempty"`
	DoctorSummary     string    `json:"doctor_summary,omitempty"`
	PatientSummary    string    `json:"patient_summary,omitempty"`
	QuestionsAnswered int       `json:"questions_answered"`
	Turn              int       `json:"turn"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	CompletedAt       time.Time `json:"completed_at,omitzero"`
}

// Message is one persisted transcript entry.
type Message struct {
	ID             int64     `json:"id"`
	ConsultationID string    `json:"-"`
	Role           string    `json:"role"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// TurnRecord captures the durable outcome of one completed turn.
type TurnRecord struct {
	ConsultationID    string
	PatientName       string
	ReferralToken     string
	PatientMessage    string
	AgentMessages     []string
	Status            string
	TerminateReason   string
	UrgencyLevel      string
	DoctorSummary     string
	PatientSummary    string
	QuestionsAnswered int
	Turn              int
}

// SearchQuery filters consultation searches. Zero-value fields are not
// applied.
type SearchQuery struct {
	PatientName string
	Status      string
	Urgency     string
	Limit       int
}

// Stats is the aggregate consultation statistics report.
type Stats struct {
	TotalConsultations   int            `json:"total_consultations"`
	Active               int            `json:"active"`
	Completed            int            `json:"completed"`
	TerminatedSafety     int            `json:"terminated_safety"`
	TerminatedOffTopic   int            `json:"terminated_off_topic"`
	ByUrgency            map[string]int `json:"by_urgency"`
	AvgQuestionsAnswered float64        `json:"avg_questions_answered"`
	ReferralUploads      int            `json:"referral_uploads"`
}

// Store is a SQLite-backed consultation store. It is safe for
// concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the consultation database at path
// and applies the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReferral persists an extracted referral letter and returns the
// upload token that later associates it with a consultation.
func (s *Store) SaveReferral(ctx context.Context, r Referral) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referral_letters
		   (token, patient_name, doctor_name, referral_date, referred_to, referral_reason, letter_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token, r.PatientName, r.DoctorName, r.ReferralDate, r.ReferredTo,
		r.ReferralReason, r.Text, now.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("save referral: %w", err)
	}
	return token, nil
}

// GetReferral loads a referral letter by upload token.
func (s *Store) GetReferral(ctx context.Context, token string) (*Referral, error) {
	return s.loadReferral(ctx, s.db, token)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadReferral(ctx context.Context, q querier, token string) (*Referral, error) {
	var r Referral
	var createdAt, usedAt string
	err := q.QueryRowContext(ctx,
		`SELECT token, patient_name, doctor_name, referral_date, referred_to, referral_reason, letter_text, created_at, used_at
		 FROM referral_letters WHERE token = ?`, token).
		Scan(&r.Token, &r.PatientName, &r.DoctorName, &r.ReferralDate,
			&r.ReferredTo, &r.ReferralReason, &r.Text, &createdAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load referral: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if usedAt != "" {
		r.UsedAt, _ = time.Parse(time.RFC3339Nano, usedAt)
	}
	return &r, nil
}

// ConsumeReferral loads a referral letter and marks its token used.
// Tokens are single-use: consuming an already-used token returns
// ErrReferralUsed.
func (s *Store) ConsumeReferral(ctx context.Context, token string) (*Referral, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("consume referral: %w", err)
	}
	defer tx.Rollback()

	r, err := s.loadReferral(ctx, tx, token)
	if err != nil {
		return nil, err
	}
	if !r.UsedAt.IsZero() {
		return nil, ErrReferralUsed
	}

	r.UsedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE referral_letters SET used_at = ? WHERE token = ?`,
		r.UsedAt.Format(time.RFC3339Nano), token)
	if err != nil {
		return nil, fmt.Errorf("consume referral: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("consume referral: %w", err)
	}
	return r, nil
}

// RecordTurn upserts the consultation row and appends the turn's
// messages in a single transaction.
func (s *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	if rec.ConsultationID == "" {
		return fmt.Errorf("record turn: consultation id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	completedAt := ""
	if rec.Status != StatusActive {
		completedAt = now
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO consultations
		   (id, patient_name, referral_token, status, terminate_reason, urgency_level,
		    doctor_summary, patient_summary, questions_answered, turn, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   patient_name = excluded.patient_name,
		   status = excluded.status,
		   terminate_reason = excluded.terminate_reason,
		   urgency_level = excluded.urgency_level,
		   doctor_summary = excluded.doctor_summary,
		   patient_summary = excluded.patient_summary,
		   questions_answered = excluded.questions_answered,
		   turn = excluded.turn,
		   updated_at = excluded.updated_at,
		   completed_at = CASE WHEN consultations.completed_at != ''
		                       THEN consultations.completed_at
		                       ELSE excluded.completed_at END`,
		rec.ConsultationID, rec.PatientName, rec.ReferralToken, rec.Status,
		rec.TerminateReason, rec.UrgencyLevel, rec.DoctorSummary,
		rec.PatientSummary, rec.QuestionsAnswered, rec.Turn, now, now, completedAt)
	if err != nil {
		return fmt.Errorf("record turn: upsert consultation: %w", err)
	}

	insert := func(role, text string) error {
		if text == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (consultation_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
			rec.ConsultationID, role, text, now)
		return err
	}

	if err := insert("patient", rec.PatientMessage); err != nil {
		return fmt.Errorf("record turn: insert patient message: %w", err)
	}
	for _, msg := range rec.AgentMessages {
		if err := insert("agent", msg); err != nil {
			return fmt.Errorf("record turn: insert agent message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// GetConsultation loads one consultation and its full transcript.
func (s *Store) GetConsultation(ctx context.Context, id string) (*Consultation, []Message, error) {
	var c Consultation
	var createdAt, updatedAt, completedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, patient_name, referral_token, status, terminate_reason, urgency_level,
		        doctor_summary, patient_summary, questions_answered, turn, created_at, updated_at, completed_at
		 FROM consultations WHERE id = ?`, id).
		Scan(&c.ID, &c.PatientName, &c.ReferralToken, &c.Status, &c.TerminateReason,
			&c.UrgencyLevel, &c.DoctorSummary, &c.PatientSummary,
			&c.QuestionsAnswered, &c.Turn, &createdAt, &updatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load consultation: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt != "" {
		c.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, consultation_id, role, text, created_at
		 FROM messages WHERE consultation_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.ID, &m.ConsultationID, &m.Role, &m.Text, &ts); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load transcript: %w", err)
	}
	return &c, msgs, nil
}

// Search returns consultations matching the query, most recently
// updated first.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]Consultation, error) {
	var (
		where []string
		args  []any
	)
	if q.PatientName != "" {
		where = append(where, "patient_name LIKE ?")
		args = append(args, "%"+q.PatientName+"%")
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Urgency != "" {
		where = append(where, "urgency_level = ?")
		args = append(args, q.Urgency)
	}

	query := `SELECT id, patient_name, referral_token, status, terminate_reason, urgency_level,
	                 doctor_summary, patient_summary, questions_answered, turn, created_at, updated_at, completed_at
	          FROM consultations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search consultations: %w", err)
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		var c Consultation
		var createdAt, updatedAt, completedAt string
		if err := rows.Scan(&c.ID, &c.PatientName, &c.ReferralToken, &c.Status,
			&c.TerminateReason, &c.UrgencyLevel, &c.DoctorSummary, &c.PatientSummary,
			&c.QuestionsAnswered, &c.Turn, &createdAt, &updatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		if completedAt != "" {
			c.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search consultations: %w", err)
	}
	return out, nil
}

// Statistics aggregates consultation counts, urgency distribution, and
// the mean questions-answered across all consultations.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	stats := Stats{ByUrgency: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM consultations GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan status count: %w", err)
		}
		stats.TotalConsultations += n
		switch status {
		case StatusActive:
			stats.Active = n
		case StatusCompleted:
			stats.Completed = n
		case StatusTerminatedSafety:
			stats.TerminatedSafety = n
		case StatusTerminatedOffTopic:
			stats.TerminatedOffTopic = n
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("aggregate statuses: %w", err)
	}

	urows, err := s.db.QueryContext(ctx,
		`SELECT urgency_level, COUNT(*) FROM consultations WHERE urgency_level != '' GROUP BY urgency_level`)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate urgency: %w", err)
	}
	defer urows.Close()
	for urows.Next() {
		var urgency string
		var n int
		if err := urows.Scan(&urgency, &n); err != nil {
			return Stats{}, fmt.Errorf("scan urgency count: %w", err)
		}
		stats.ByUrgency[urgency] = n
	}
	if err := urows.Err(); err != nil {
		return Stats{}, fmt.Errorf("aggregate urgency: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(questions_answered), 0) FROM consultations`).
		Scan(&stats.AvgQuestionsAnswered)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate questions answered: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referral_letters`).Scan(&stats.ReferralUploads)
	if err != nil {
		return Stats{}, fmt.Errorf("count referral uploads: %w", err)
	}

	return stats, nil
}
