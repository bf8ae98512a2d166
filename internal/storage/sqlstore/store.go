package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// Store: сессии, записи и заявки в SQL. Один код для postgres и sqlite,
// отличаются только плейсхолдеры.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{
		db: db,
		sb: newBuilder(dialect),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newBuilder(dialect Dialect) sq.StatementBuilderType {
	if dialect == Postgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		user_id    TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		flow       TEXT NOT NULL DEFAULT '',
		answers    TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		user_id    TEXT NOT NULL,
		branch_id  TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL,
		phone      TEXT NOT NULL,
		appt_date  TEXT NOT NULL,
		appt_time  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		user_id    TEXT NOT NULL,
		flow       TEXT NOT NULL,
		fields     TEXT NOT NULL DEFAULT '{}',
		estimate   INTEGER NOT NULL DEFAULT 0,
		remote     BOOLEAN
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errs.New("failed to migrate schema").Wrap(err)
		}
	}
	return nil
}

// --- Сессии ---

func (s *Store) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	query, args, err := s.sb.
		Select("user_id", "state", "flow", "answers", "updated_at").
		From("sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, errs.New("build select session").Wrap(err)
	}

	var (
		sess    domain.Session
		answers string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&sess.UserID, &sess.State, &sess.Flow, &answers, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errs.New("select session").Arg("user", userID).Wrap(err)
	}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return nil, errs.New("decode session answers").Arg("user", userID).Wrap(err)
	}
	return &sess, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess *domain.Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return errs.New("encode session answers").Wrap(err)
	}

	query, args, err := s.sb.
		Insert("sessions").
		Columns("user_id", "state", "flow", "answers", "updated_at").
		Values(sess.UserID, string(sess.State), string(sess.Flow), string(answers), sess.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			state = excluded.state,
			flow = excluded.flow,
			answers = excluded.answers,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return errs.New("build upsert session").Wrap(err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.New("upsert session").Arg("user", sess.UserID).Wrap(err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	query, args, err := s.sb.Delete("sessions").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return errs.New("build delete session").Wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.New("delete session").Arg("user", userID).Wrap(err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	query, args, err := s.sb.
		Select("user_id", "state", "flow", "answers", "updated_at").
		From("sessions").
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, errs.New("build list sessions").Wrap(err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.New("list sessions").Wrap(err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var (
			sess    domain.Session
			answers string
		)
		if err := rows.Scan(&sess.UserID, &sess.State, &sess.Flow, &answers, &sess.UpdatedAt); err != nil {
			return nil, errs.New("scan session").Wrap(err)
		}
		if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
			return nil, errs.New("decode session answers").Arg("user", sess.UserID).Wrap(err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// --- Записи ---

var appointmentColumns = []string{"id", "created_at", "user_id", "branch_id", "name", "phone", "appt_date", "appt_time"}

func (s *Store) SaveAppointment(ctx context.Context, ap *domain.Appointment) error {
	query, args, err := s.sb.
		Insert("appointments").
		Columns(appointmentColumns...).
		Values(ap.ID, ap.CreatedAt.UTC(), ap.UserID, ap.BranchID, ap.Name, ap.Phone, ap.Date, ap.Time).
		ToSql()
	if err != nil {
		return errs.New("build insert appointment").Wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.New("insert appointment").Arg("id", ap.ID).Wrap(err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	aps, err := s.selectAppointments(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(aps) == 0 {
		return nil, domain.ErrNotFound
	}
	return &aps[0], nil
}

func (s *Store) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	return s.selectAppointments(ctx, nil)
}

func (s *Store) selectAppointments(ctx context.Context, where sq.Sqlizer) ([]domain.Appointment, error) {
	b := s.sb.Select(appointmentColumns...).From("appointments").OrderBy("created_at", "id")
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errs.New("build select appointments").Wrap(err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.New("select appointments").Wrap(err)
	}
	defer rows.Close()

	var out []domain.Appointment
	for rows.Next() {
		var ap domain.Appointment
		if err := rows.Scan(&ap.ID, &ap.CreatedAt, &ap.UserID, &ap.BranchID, &ap.Name, &ap.Phone, &ap.Date, &ap.Time); err != nil {
			return nil, errs.New("scan appointment").Wrap(err)
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

// --- Заявки ---

var reportColumns = []string{"id", "created_at", "user_id", "flow", "fields", "estimate", "remote"}

func (s *Store) SaveReport(ctx context.Context, r *domain.Report) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return errs.New("encode report fields").Wrap(err)
	}

	var remote sql.NullBool
	if r.Remote != nil {
		remote = sql.NullBool{Bool: *r.Remote, Valid: true}
	}

	query, args, err := s.sb.
		Insert("reports").
		Columns(reportColumns...).
		Values(r.ID, r.CreatedAt.UTC(), r.UserID, string(r.Flow), string(fields), r.Estimate, remote).
		ToSql()
	if err != nil {
		return errs.New("build insert report").Wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.New("insert report").Arg("id", r.ID).Wrap(err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	reports, err := s.selectReports(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, domain.ErrNotFound
	}
	return &reports[0], nil
}

func (s *Store) ListReports(ctx context.Context) ([]domain.Report, error) {
	return s.selectReports(ctx, nil)
}

func (s *Store) selectReports(ctx context.Context, where sq.Sqlizer) ([]domain.Report, error) {
	b := s.sb.Select(reportColumns...).From("reports").OrderBy("created_at", "id")
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errs.New("build select reports").Wrap(err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.New("select reports").Wrap(err)
	}
	defer rows.Close()

	var out []domain.Report
	for rows.Next() {
		var (
			r      domain.Report
			fields string
			remote sql.NullBool
		)
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.UserID, &r.Flow, &fields, &r.Estimate, &remote); err != nil {
			return nil, errs.New("scan report").Wrap(err)
		}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, errs.New("decode report fields").Arg("id", r.ID).Wrap(err)
		}
		if remote.Valid {
			v := remote.Bool
			r.Remote = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping: для проверки соединения при старте.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
