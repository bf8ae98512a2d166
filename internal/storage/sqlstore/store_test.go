package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

func newSQLite(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(context.Background(), db, SQLite)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	_, err := s.GetSession(ctx, "whatsapp:+1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sess := domain.NewSession("whatsapp:+1")
	sess.Flow = domain.FlowQuickConsult
	sess.State = domain.StateQCOS
	sess.Set("device", "Laptop")
	sess.UpdatedAt = time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSession(ctx, sess))

	sess.State = domain.StateQCSymptom
	sess.Set("os", "Windows")
	require.NoError(t, s.UpsertSession(ctx, sess))

	got, err := s.GetSession(ctx, "whatsapp:+1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateQCSymptom, got.State)
	assert.Equal(t, domain.FlowQuickConsult, got.Flow)
	assert.Equal(t, map[string]string{"device": "Laptop", "os": "Windows"}, got.Answers)
	assert.True(t, sess.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, s.UpsertSession(ctx, domain.NewSession("whatsapp:+2")))
	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "whatsapp:+1", list[0].UserID)

	require.NoError(t, s.DeleteSession(ctx, "whatsapp:+1"))
	_, err = s.GetSession(ctx, "whatsapp:+1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Appointments(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	base := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{
		ID: "a1", CreatedAt: base, UserID: "whatsapp:+1", BranchID: "palmares",
		Name: "Ana", Phone: "+1", Date: "2025-12-05", Time: "10:00",
	}))
	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{
		ID: "a2", CreatedAt: base.Add(time.Hour), UserID: "whatsapp:+2",
		Name: "Luis", Phone: "+2", Date: "mañana", Time: "15:30",
	}))

	ap, err := s.GetAppointment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "palmares", ap.BranchID)
	assert.Equal(t, "10:00", ap.Time)

	_, err = s.GetAppointment(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.Equal(t, "a2", list[1].ID)

	// повторный ID: append-only журнал не перезаписывает
	assert.Error(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "a1", CreatedAt: base}))
}

func TestStore_Reports(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	remote := false
	require.NoError(t, s.SaveReport(ctx, &domain.Report{
		ID: "r1", CreatedAt: time.Now().UTC(), UserID: "whatsapp:+1", Flow: domain.FlowQuickConsult,
		Fields: map[string]string{"symptom": "no enciende"}, Remote: &remote,
	}))
	require.NoError(t, s.SaveReport(ctx, &domain.Report{
		ID: "r2", CreatedAt: time.Now().UTC(), UserID: "whatsapp:+1", Flow: domain.FlowRepair,
		Fields: map[string]string{"problem": "pantalla"}, Estimate: 27000,
	}))

	r1, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r1.Remote)
	assert.False(t, *r1.Remote)
	assert.Equal(t, "no enciende", r1.Fields["symptom"])

	r2, err := s.GetReport(ctx, "r2")
	require.NoError(t, err)
	assert.Nil(t, r2.Remote)
	assert.Equal(t, 27000, r2.Estimate)

	list, err := s.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestNewBuilder_PostgresPlaceholders(t *testing.T) {
	query, _, err := newBuilder(Postgres).Select("id").From("reports").Where("id = ?", "x").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM reports WHERE id = $1", query)
}
