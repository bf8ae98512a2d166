package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl), mr
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Hour)

	_, err := s.GetSession(ctx, "whatsapp:+1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sess := domain.NewSession("whatsapp:+1")
	sess.Flow = domain.FlowAdvisor
	sess.State = domain.StateAdvisorReason
	sess.Set("name", "Ana")
	require.NoError(t, s.UpsertSession(ctx, sess))
	require.NoError(t, s.UpsertSession(ctx, domain.NewSession("whatsapp:+2")))

	got, err := s.GetSession(ctx, "whatsapp:+1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAdvisorReason, got.State)
	assert.Equal(t, "Ana", got.Answer("name"))
	assert.Equal(t, time.Hour, mr.TTL(sessionPrefix+"whatsapp:+1"))

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "whatsapp:+1", list[0].UserID)

	require.NoError(t, s.DeleteSession(ctx, "whatsapp:+1"))
	_, err = s.GetSession(ctx, "whatsapp:+1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mr.FastForward(2 * time.Hour)
	_, err = s.GetSession(ctx, "whatsapp:+2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Records(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "a1", Name: "Ana"}))
	require.NoError(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "a2", Name: "Luis"}))
	assert.Error(t, s.SaveAppointment(ctx, &domain.Appointment{ID: "a1", Name: "Otra"}))

	aps, err := s.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "Ana", aps[0].Name)
	assert.Equal(t, "Luis", aps[1].Name)

	ap, err := s.GetAppointment(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, "Luis", ap.Name)

	_, err = s.GetAppointment(ctx, "zz")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveReport(ctx, &domain.Report{ID: "r1", Flow: domain.FlowOther, Fields: map[string]string{"request": "impresora"}}))
	r, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "impresora", r.Fields["request"])

	reports, err := s.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	empty, _ := newStore(t, 0)
	none, err := empty.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}
