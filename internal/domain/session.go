package domain

import "time"

// State: текущий шаг диалога. Закрытое множество, см. константы ниже.
type State string

const (
	StateMenu State = "MENU"

	StateRepairProblem  State = "REPAIR_PROBLEM"
	StateRepairName     State = "REPAIR_NAME"
	StateRepairLocation State = "REPAIR_LOCATION"

	StateMaintChoice State = "MAINT_CHOICE"

	StateOtherRequest State = "OTHER_REQUEST"

	StateBranchPick State = "BRANCH_PICK"

	StateApptBranch State = "APPT_BRANCH"
	StateApptName   State = "APPT_NAME"
	StateApptPhone  State = "APPT_PHONE"
	StateApptDate   State = "APPT_DATE"
	StateApptTime   State = "APPT_TIME"

	StateStatusTicket State = "STATUS_TICKET"

	StateAdvisorName   State = "ADVISOR_NAME"
	StateAdvisorReason State = "ADVISOR_REASON"

	StateQCName        State = "QC_NAME"
	StateQCEmail       State = "QC_EMAIL"
	StateQCZone        State = "QC_ZONE"
	StateQCContactTime State = "QC_CONTACT_TIME"
	StateQCDevice      State = "QC_DEVICE"
	StateQCBrand       State = "QC_BRAND"
	StateQCOS          State = "QC_OS"
	StateQCSymptom     State = "QC_SYMPTOM"
	StateQCDuration    State = "QC_DURATION"
	StateQCRecent      State = "QC_RECENT"
)

// Flow: активная ветка диалога. Пустая строка означает «в меню».
type Flow string

const (
	FlowNone         Flow = ""
	FlowRepair       Flow = "reparacion"
	FlowMaintenance  Flow = "mantenimiento"
	FlowOther        Flow = "otros"
	FlowBranches     Flow = "sucursales"
	FlowAppointment  Flow = "cita"
	FlowStatus       Flow = "estado"
	FlowAdvisor      Flow = "asesor"
	FlowQuickConsult Flow = "consulta"
)

// Session: прогресс одного пользователя.
type Session struct {
	UserID    string            `json:"userId"`
	State     State             `json:"state"`
	Flow      Flow              `json:"flow,omitempty"`
	Answers   map[string]string `json:"answers"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func NewSession(userID string) *Session {
	return &Session{
		UserID:  userID,
		State:   StateMenu,
		Answers: map[string]string{},
	}
}

func (s *Session) Idle() bool {
	return s.State == StateMenu
}

// Reset возвращает сессию в меню и очищает ответы.
func (s *Session) Reset() {
	s.State = StateMenu
	s.Flow = FlowNone
	s.Answers = map[string]string{}
}

func (s *Session) Set(field, value string) {
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	s.Answers[field] = value
}

func (s *Session) Answer(field string) string {
	return s.Answers[field]
}

// Clone нужен хранилищам, которые держат сессии в памяти.
func (s *Session) Clone() *Session {
	out := *s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}
