package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/ai"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

// --- Порты. Ошибки логируются и глотаются здесь, диалог идёт дальше ---

func (s *service) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("operator notification failed")
		s.observer.SideEffectFailed("notify")
	}
}

func (s *service) saveAppointment(ctx context.Context, ap *domain.Appointment) {
	if err := s.store.SaveAppointment(ctx, ap); err != nil {
		s.log.Error().Err(err).Fields(errs.Args(err)).Str("appointment", ap.ID).Msg("save appointment failed")
		s.observer.SideEffectFailed("appointment")
	}
}

func (s *service) saveReport(ctx context.Context, r *domain.Report) {
	if err := s.store.SaveReport(ctx, r); err != nil {
		s.log.Error().Err(err).Fields(errs.Args(err)).Str("report", r.ID).Msg("save report failed")
		s.observer.SideEffectFailed("report")
	}
}

func (s *service) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	answer, err := s.ai.Complete(ctx, system, prompt)
	if err != nil && !errors.Is(err, ai.ErrDisabled) {
		s.log.Warn().Err(err).Msg("ai completion failed")
		s.observer.SideEffectFailed("ai")
	}
	return answer, err
}

// --- Завершение потоков ---

func (s *service) newReport(sess *domain.Session) *domain.Report {
	fields := make(map[string]string, len(sess.Answers))
	for k, v := range sess.Answers {
		fields[k] = v
	}
	return &domain.Report{
		ID:        domain.ShortID(),
		CreatedAt: s.now(),
		UserID:    sess.UserID,
		Flow:      sess.Flow,
		Fields:    fields,
	}
}

// operatorSummary: текст для оператора, поля в порядке вопросов потока.
func (s *service) operatorSummary(title string, sess *domain.Session, id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nDe: %s\nID: %s\n", title, sess.UserID, id)
	if def, ok := s.flows[sess.Flow]; ok {
		for _, st := range def.steps {
			if v, ok := sess.Answers[st.field]; ok && st.field != "" {
				fmt.Fprintf(&b, "%s: %s\n", st.field, v)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func completeRepair(ctx context.Context, s *service, sess *domain.Session) string {
	r := s.newReport(sess)
	r.Estimate = Estimate(s.cat, sess.Answer(fieldProblem))
	s.saveReport(ctx, r)
	s.notify(ctx, s.operatorSummary("🔧 Nueva reparación", sess, r.ID)+"\nestimado: "+colones(r.Estimate))

	return fmt.Sprintf("💰 *Estimado preliminar*: %s\n(Este es un estimado; el precio final depende del diagnóstico completo).\n\nNúmero de caso: *%s*\n¿Quieres que te agendemos una cita para diagnóstico? Escribe 5.",
		colones(r.Estimate), r.ID)
}

func completeOther(ctx context.Context, s *service, sess *domain.Session) string {
	r := s.newReport(sess)
	s.saveReport(ctx, r)
	s.notify(ctx, s.operatorSummary("📌 Solicitud de otros servicios", sess, r.ID))

	return fmt.Sprintf("Gracias. Hemos recibido tu solicitud: \"%s\".\nUn agente humano te contactará pronto.\nNúmero de caso: *%s*",
		sess.Answer(fieldRequest), r.ID)
}

func completeBranches(_ context.Context, s *service, sess *domain.Session) string {
	br, ok := s.cat.Branch(sess.Answer(fieldBranch))
	if !ok {
		return invalidNumberText
	}
	return branchDetails(br)
}

func completeAppointment(ctx context.Context, s *service, sess *domain.Session) string {
	ap := &domain.Appointment{
		ID:        domain.ShortID(),
		CreatedAt: s.now(),
		UserID:    sess.UserID,
		BranchID:  sess.Answer(fieldBranch),
		Name:      sess.Answer(fieldName),
		Phone:     sess.Answer(fieldPhone),
		Date:      sess.Answer(fieldDate),
		Time:      sess.Answer(fieldTime),
	}
	s.saveAppointment(ctx, ap)
	s.notify(ctx, s.operatorSummary("📅 Nueva cita", sess, ap.ID))

	branch := ap.BranchID
	if br, ok := s.cat.Branch(ap.BranchID); ok {
		branch = br.Name
	}
	if branch == "" {
		branch = "-"
	}

	return fmt.Sprintf("✅ *Cita agendada con éxito*\nID: %s\nSucursal: %s\nNombre: %s\nTel: %s\nFecha: %s\nHora: %s\n\nTe contactaremos para confirmar.",
		ap.ID, branch, ap.Name, ap.Phone, ap.Date, ap.Time)
}

func completeStatus(ctx context.Context, s *service, sess *domain.Session) string {
	ticket := strings.TrimSpace(strings.TrimPrefix(sess.Answer(fieldTicket), "#"))
	answer := s.lookupTicket(ctx, ticket)

	r := s.newReport(sess)
	s.saveReport(ctx, r)
	s.notify(ctx, s.operatorSummary("🔎 Consulta de estado", sess, r.ID))

	return answer
}

func (s *service) lookupTicket(ctx context.Context, ticket string) string {
	if ticket == "" {
		return notFoundTicket(ticket)
	}

	if r, err := s.store.GetReport(ctx, ticket); err == nil {
		return fmt.Sprintf("Tu caso *%s* (%s) fue registrado el %s y está en revisión por un técnico. Te avisaremos cuando esté listo.",
			r.ID, r.Flow, r.CreatedAt.Format("02/01/2006 15:04"))
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.log.Error().Err(err).Str("ticket", ticket).Msg("report lookup failed")
		s.observer.SideEffectFailed("report")
	}

	if ap, err := s.store.GetAppointment(ctx, ticket); err == nil {
		return fmt.Sprintf("Tu cita *%s* está agendada para %s a las %s a nombre de %s.", ap.ID, ap.Date, ap.Time, ap.Name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.log.Error().Err(err).Str("ticket", ticket).Msg("appointment lookup failed")
		s.observer.SideEffectFailed("appointment")
	}

	return notFoundTicket(ticket)
}

func notFoundTicket(ticket string) string {
	return fmt.Sprintf("No encontramos el número \"%s\". Revisa el número o escribe 8 para hablar con un asesor.", ticket)
}

func completeAdvisor(ctx context.Context, s *service, sess *domain.Session) string {
	r := s.newReport(sess)
	s.saveReport(ctx, r)
	s.notify(ctx, s.operatorSummary("🙋 Cliente solicita un asesor", sess, r.ID))

	return fmt.Sprintf("Gracias %s. Un asesor te escribirá pronto por este mismo chat.\nNúmero de caso: *%s*",
		sess.Answer(fieldName), r.ID)
}

func completeQuickConsult(ctx context.Context, s *service, sess *domain.Session) string {
	remote := IsRemoteCandidate(s.cat.RemoteKeywords, sess.Answer(fieldSymptom))

	r := s.newReport(sess)
	r.Remote = &remote
	s.saveReport(ctx, r)

	mode := "presencial"
	if remote {
		mode = "remoto"
	}
	s.notify(ctx, s.operatorSummary("🩺 Consulta técnica", sess, r.ID)+"\nsoporte: "+mode)

	var advice string
	if remote {
		advice = fmt.Sprintf("💻 Por lo que describes, tu caso puede resolverse con *soporte remoto*. Un técnico te contactará en el horario indicado (%s).",
			sess.Answer(fieldContactTime))
	} else {
		advice = "🏪 Por lo que describes, te recomendamos *traer el equipo a la sucursal* para un diagnóstico presencial. Escribe 5 para agendar una cita."
	}

	return fmt.Sprintf("Gracias %s, registramos tu consulta.\nEquipo: %s %s (%s)\nProblema: %s\nNúmero de caso: *%s*\n\n%s",
		sess.Answer(fieldName), sess.Answer(fieldDevice), sess.Answer(fieldBrandModel), sess.Answer(fieldOS),
		sess.Answer(fieldSymptom), r.ID, advice)
}
