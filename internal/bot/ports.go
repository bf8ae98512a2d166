package bot

import (
	"context"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

// SessionStore: прогресс диалога по номеру. Get отдаёт domain.ErrNotFound для новых номеров.
type SessionStore interface {
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	UpsertSession(ctx context.Context, sess *domain.Session) error
	DeleteSession(ctx context.Context, userID string) error
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

// AppointmentRepo: журнал записей, только добавление.
type AppointmentRepo interface {
	SaveAppointment(ctx context.Context, ap *domain.Appointment) error
	GetAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
}

// ReportRepo: журнал закрытых заявок, только добавление.
type ReportRepo interface {
	SaveReport(ctx context.Context, r *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	ListReports(ctx context.Context) ([]domain.Report, error)
}

// Store: всё, что умеет бэкенд хранения.
type Store interface {
	SessionStore
	AppointmentRepo
	ReportRepo
}

// Notifier: канал до оператора мастерской.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Observer получает события движка, обычно это prometheus.
type Observer interface {
	MessageHandled(flow domain.Flow)
	FlowCompleted(flow domain.Flow)
	SideEffectFailed(port string)
}

// Service: движок диалога. Ответ есть всегда, ошибок наружу нет.
type Service interface {
	HandleMessage(ctx context.Context, userID, text string) string
}

type nopObserver struct{}

func (nopObserver) MessageHandled(domain.Flow) {}
func (nopObserver) FlowCompleted(domain.Flow)  {}
func (nopObserver) SideEffectFailed(string)    {}
