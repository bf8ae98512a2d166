package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

// document: формат db.json.
type document struct {
	Sessions     map[string]*domain.Session `json:"sessions"`
	Appointments []domain.Appointment       `json:"appointments"`
	Reports      []domain.Report            `json:"reports"`
}

// Store: JSON-документ на диске. Каждое изменение переписывает файл целиком.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
}

func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  document{Sessions: map[string]*domain.Session{}},
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.flush(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, errs.New("failed to read db file").Arg("path", path).Wrap(err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, errs.New("failed to parse db file").Arg("path", path).Wrap(err)
		}
	}
	if s.doc.Sessions == nil {
		s.doc.Sessions = map[string]*domain.Session{}
	}
	return s, nil
}

// flush пишет во временный файл и переименовывает, чтобы не оставить полузаписанный JSON.
// При ошибке вызывающий откатывает изменение в doc: память не расходится с диском.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return errs.New("failed to encode db").Wrap(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errs.New("failed to create temp db file").Arg("path", s.path).Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.New("failed to write db file").Arg("path", s.path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errs.New("failed to close db file").Arg("path", s.path).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errs.New("failed to replace db file").Arg("path", s.path).Wrap(err)
	}
	return nil
}

func (s *Store) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.doc.Sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) UpsertSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.doc.Sessions[sess.UserID]
	s.doc.Sessions[sess.UserID] = sess.Clone()
	if err := s.flush(); err != nil {
		if had {
			s.doc.Sessions[sess.UserID] = prev
		} else {
			delete(s.doc.Sessions, sess.UserID)
		}
		return err
	}
	return nil
}

func (s *Store) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Sessions[userID]
	if !ok {
		return nil
	}
	delete(s.doc.Sessions, userID)
	if err := s.flush(); err != nil {
		s.doc.Sessions[userID] = prev
		return err
	}
	return nil
}

func (s *Store) ListSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, len(s.doc.Sessions))
	for _, sess := range s.doc.Sessions {
		out = append(out, *sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) SaveAppointment(_ context.Context, ap *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.doc.Appointments)
	s.doc.Appointments = append(s.doc.Appointments, *ap)
	if err := s.flush(); err != nil {
		s.doc.Appointments = s.doc.Appointments[:n]
		return err
	}
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (*domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ap := range s.doc.Appointments {
		if ap.ID == id {
			ap := ap
			return &ap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAppointments(_ context.Context) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Appointment(nil), s.doc.Appointments...), nil
}

func (s *Store) SaveReport(_ context.Context, r *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.doc.Reports)
	s.doc.Reports = append(s.doc.Reports, *r)
	if err := s.flush(); err != nil {
		s.doc.Reports = s.doc.Reports[:n]
		return err
	}
	return nil
}

func (s *Store) GetReport(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.doc.Reports {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListReports(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Report(nil), s.doc.Reports...), nil
}
