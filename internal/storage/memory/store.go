package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

// Store держит всё в памяти процесса. Мьютекс защищает только сами map/slice,
// порядок запросов одного пользователя не сериализуется.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*domain.Session
	appointments []domain.Appointment
	reports      []domain.Report
}

func New() *Store {
	return &Store{sessions: map[string]*domain.Session{}}
}

func (s *Store) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) UpsertSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.UserID] = sess.Clone()
	return nil
}

func (s *Store) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *Store) ListSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) SaveAppointment(_ context.Context, ap *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appointments = append(s.appointments, *ap)
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (*domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.appointments {
		if s.appointments[i].ID == id {
			ap := s.appointments[i]
			return &ap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAppointments(_ context.Context) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Appointment(nil), s.appointments...), nil
}

func (s *Store) SaveReport(_ context.Context, r *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, *r)
	return nil
}

func (s *Store) GetReport(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.reports {
		if s.reports[i].ID == id {
			r := s.reports[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListReports(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Report(nil), s.reports...), nil
}
