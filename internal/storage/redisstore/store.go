package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

const (
	sessionPrefix     = "bot:session:"
	appointmentsHash  = "bot:appointments"
	appointmentsOrder = "bot:appointments:order"
	reportsHash       = "bot:reports"
	reportsOrder      = "bot:reports:order"
)

// Store: сессии как отдельные ключи с TTL, журналы как hash + list для порядка.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New: ttl=0: сессии не истекают.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errs.New("get session").Arg("user", userID).Wrap(err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errs.New("decode session").Arg("user", userID).Wrap(err)
	}
	return &sess, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errs.New("encode session").Wrap(err)
	}
	if err := s.client.Set(ctx, sessionPrefix+sess.UserID, data, s.ttl).Err(); err != nil {
		return errs.New("set session").Arg("user", sess.UserID).Wrap(err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionPrefix+userID).Err(); err != nil {
		return errs.New("delete session").Arg("user", userID).Wrap(err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var out []domain.Session
	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		userID := strings.TrimPrefix(iter.Val(), sessionPrefix)
		sess, err := s.GetSession(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			continue // истёк между SCAN и GET
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := iter.Err(); err != nil {
		return nil, errs.New("scan sessions").Wrap(err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) SaveAppointment(ctx context.Context, ap *domain.Appointment) error {
	return s.appendRecord(ctx, appointmentsHash, appointmentsOrder, ap.ID, ap)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	var ap domain.Appointment
	if err := s.getRecord(ctx, appointmentsHash, id, &ap); err != nil {
		return nil, err
	}
	return &ap, nil
}

func (s *Store) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	raw, err := s.listRecords(ctx, appointmentsHash, appointmentsOrder)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(raw))
	for _, data := range raw {
		var ap domain.Appointment
		if err := json.Unmarshal(data, &ap); err != nil {
			return nil, errs.New("decode appointment").Wrap(err)
		}
		out = append(out, ap)
	}
	return out, nil
}

func (s *Store) SaveReport(ctx context.Context, r *domain.Report) error {
	return s.appendRecord(ctx, reportsHash, reportsOrder, r.ID, r)
}

func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var r domain.Report
	if err := s.getRecord(ctx, reportsHash, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context) ([]domain.Report, error) {
	raw, err := s.listRecords(ctx, reportsHash, reportsOrder)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Report, 0, len(raw))
	for _, data := range raw {
		var r domain.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, errs.New("decode report").Wrap(err)
		}
		out = append(out, r)
	}
	return out, nil
}

// appendRecord: HSETNX не даёт перезаписать запись с тем же ID.
func (s *Store) appendRecord(ctx context.Context, hash, order, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.New("encode record").Arg("hash", hash).Wrap(err)
	}

	ok, err := s.client.HSetNX(ctx, hash, id, data).Result()
	if err != nil {
		return errs.New("save record").Arg("hash", hash).Arg("id", id).Wrap(err)
	}
	if !ok {
		return errs.New("record already exists").Arg("hash", hash).Arg("id", id)
	}
	if err := s.client.RPush(ctx, order, id).Err(); err != nil {
		return errs.New("index record").Arg("list", order).Arg("id", id).Wrap(err)
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, hash, id string, v any) error {
	data, err := s.client.HGet(ctx, hash, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return errs.New("get record").Arg("hash", hash).Arg("id", id).Wrap(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.New("decode record").Arg("hash", hash).Arg("id", id).Wrap(err)
	}
	return nil
}

func (s *Store) listRecords(ctx context.Context, hash, order string) ([][]byte, error) {
	ids, err := s.client.LRange(ctx, order, 0, -1).Result()
	if err != nil {
		return nil, errs.New("list record ids").Arg("list", order).Wrap(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := s.client.HMGet(ctx, hash, ids...).Result()
	if err != nil {
		return nil, errs.New("list records").Arg("hash", hash).Wrap(err)
	}

	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, []byte(str))
		}
	}
	return out, nil
}
