package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	s, err := Open(path)
	require.NoError(t, err)

	sess := domain.NewSession("whatsapp:+50670000000")
	sess.Flow = domain.FlowAppointment
	sess.State = domain.StateApptDate
	sess.Set("name", "Ana")
	require.NoError(t, s.UpsertSession(ctx, sess))

	created := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "ab12cd34", CreatedAt: created, Name: "Ana", Date: "2025-12-05"}))
	remote := true
	require.NoError(t, s.SaveReport(ctx, &domain.Report{ID: "r1", Flow: domain.FlowQuickConsult, Remote: &remote}))

	reopened, err := Open(path)
	require.NoError(t, err)

	got, err := reopened.GetSession(ctx, "whatsapp:+50670000000")
	require.NoError(t, err)
	assert.Equal(t, domain.StateApptDate, got.State)
	assert.Equal(t, domain.FlowAppointment, got.Flow)
	assert.Equal(t, "Ana", got.Answer("name"))

	ap, err := reopened.GetAppointment(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.True(t, created.Equal(ap.CreatedAt))

	r, err := reopened.GetReport(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r.Remote)
	assert.True(t, *r.Remote)
}

func TestStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "x1"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "sessions")
	assert.Contains(t, doc, "appointments")
	assert.Contains(t, doc, "reports")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_DeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, "nobody"))
	require.NoError(t, s.UpsertSession(ctx, domain.NewSession("u1")))
	require.NoError(t, s.DeleteSession(ctx, "u1"))

	_, err = s.GetSession(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetReport(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestStore_FailedFlushLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o755))

	s, err := Open(filepath.Join(dir, "db.json"))
	require.NoError(t, err)

	kept := domain.NewSession("whatsapp:+1")
	kept.State = domain.StateRepairName
	require.NoError(t, s.UpsertSession(ctx, kept))

	// каталог пропал: временный файл создать нельзя, flush падает
	require.NoError(t, os.RemoveAll(dir))

	changed := kept.Clone()
	changed.State = domain.StateRepairLocation
	assert.Error(t, s.UpsertSession(ctx, changed))
	assert.Error(t, s.UpsertSession(ctx, domain.NewSession("whatsapp:+2")))
	assert.Error(t, s.DeleteSession(ctx, "whatsapp:+1"))
	assert.Error(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "a1"}))
	assert.Error(t, s.SaveReport(ctx, &domain.Report{ID: "r1", Flow: domain.FlowAdvisor}))

	got, err := s.GetSession(ctx, "whatsapp:+1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateRepairName, got.State)

	_, err = s.GetSession(ctx, "whatsapp:+2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	aps, err := s.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, aps)
	_, err = s.GetAppointment(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	reports, err := s.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
