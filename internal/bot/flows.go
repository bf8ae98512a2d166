package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

// Имена полей в Session.Answers.
const (
	fieldProblem      = "problem"
	fieldName         = "name"
	fieldLocation     = "location"
	fieldRequest      = "request"
	fieldBranch       = "branchId"
	fieldPhone        = "phone"
	fieldDate         = "date"
	fieldTime         = "time"
	fieldTicket       = "ticket"
	fieldReason       = "reason"
	fieldEmail        = "email"
	fieldZone         = "zone"
	fieldContactTime  = "contact_time"
	fieldDevice       = "device"
	fieldBrandModel   = "brand_model"
	fieldOS           = "os"
	fieldSymptom      = "symptom"
	fieldDuration     = "duration"
	fieldRecentRepair = "recent_repairs"
)

type (
	// promptFunc: текст, который пользователь видит при входе в шаг.
	promptFunc func(cat domain.Catalog, sess *domain.Session) string
	// normalizer приводит ответ к хранимому виду. false: ответ не принят, шаг повторяется.
	normalizer func(cat domain.Catalog, sess *domain.Session, text string) (string, bool)
	// branchFunc полностью берёт шаг на себя: сам двигает сессию и собирает ответ.
	branchFunc func(ctx context.Context, s *service, sess *domain.Session, text string) string
	// completeFunc вызывается на последнем шаге: записи, уведомления, итоговый текст без меню.
	completeFunc func(ctx context.Context, s *service, sess *domain.Session) string
)

type step struct {
	state     domain.State
	field     string
	prompt    promptFunc
	normalize normalizer
	branch    branchFunc
}

type flowDef struct {
	flow     domain.Flow
	steps    []step
	complete completeFunc
}

func (f *flowDef) index(state domain.State) int {
	for i, st := range f.steps {
		if st.state == state {
			return i
		}
	}
	return -1
}

func text(s string) promptFunc {
	return func(domain.Catalog, *domain.Session) string { return s }
}

// menuOrder: пункты главного меню по номерам. Пункт 6 справочный, без потока.
var menuOrder = map[string]domain.Flow{
	"1": domain.FlowRepair,
	"2": domain.FlowMaintenance,
	"3": domain.FlowOther,
	"4": domain.FlowBranches,
	"5": domain.FlowAppointment,
	"7": domain.FlowStatus,
	"8": domain.FlowAdvisor,
	"9": domain.FlowQuickConsult,
}

const menuPrices = "6"

var (
	contactTimeLabels = []string{"Mañana", "Tarde", "Noche", "Cualquier hora"}
	deviceLabels      = []string{"Laptop", "Computadora de escritorio", "All-in-one", "Otro"}
	osLabels          = []string{"Windows", "macOS", "Linux", "Otro"}
)

// buildFlows собирает таблицы потоков. Выбор филиала в записи есть, только если филиалы заданы.
func buildFlows(cat domain.Catalog) map[domain.Flow]*flowDef {
	var appointment []step
	if len(cat.Branches) > 0 {
		appointment = append(appointment, step{
			state: domain.StateApptBranch,
			field: fieldBranch,
			prompt: func(cat domain.Catalog, _ *domain.Session) string {
				return "Perfecto, vamos a agendar. Primero, elige la sucursal:\n\n" + BranchList(cat)
			},
			normalize: pickBranch,
		})
	}
	appointment = append(appointment,
		step{
			state: domain.StateApptName,
			field: fieldName,
			prompt: func(cat domain.Catalog, sess *domain.Session) string {
				if br, ok := cat.Branch(sess.Answer(fieldBranch)); ok {
					return "Perfecto. Elegiste *" + br.Name + "*.\n¿Me das tu nombre completo para la cita?"
				}
				return "Perfecto, vamos a agendar. ¿Me das tu nombre completo para la cita?"
			},
		},
		step{
			state: domain.StateApptPhone,
			field: fieldPhone,
			prompt: func(_ domain.Catalog, sess *domain.Session) string {
				return "Gracias *" + sess.Answer(fieldName) + `*. ¿Cuál es el número de teléfono donde te contactamos (si es diferente al que usas)? Si es el mismo, escribe "mismo".`
			},
			normalize: samePhone,
		},
		step{
			state:  domain.StateApptDate,
			field:  fieldDate,
			prompt: text(`Perfecto. ¿Qué fecha prefieres para la cita? (ej: 2025-12-05 o "mañana" o "próxima semana")`),
		},
		step{
			state:  domain.StateApptTime,
			field:  fieldTime,
			prompt: text("Hora preferida (ej: 10:00 AM o 15:30):"),
		},
	)

	defs := []*flowDef{
		{
			flow: domain.FlowRepair,
			steps: []step{
				{state: domain.StateRepairProblem, field: fieldProblem, prompt: text(repairIntro)},
				{
					state: domain.StateRepairName,
					field: fieldName,
					prompt: func(_ domain.Catalog, sess *domain.Session) string {
						return "Gracias por la descripción:\n\"" + sess.Answer(fieldProblem) + "\"\n\nPara darte un presupuesto y agendar, ¿puedes darme tu nombre completo?"
					},
				},
				{
					state: domain.StateRepairLocation,
					field: fieldLocation,
					prompt: func(_ domain.Catalog, sess *domain.Session) string {
						return "Gracias " + sess.Answer(fieldName) + `. ¿Cuál es la ubicación (barrio/ciudad) o prefieres llevar el equipo a la sucursal? (responde: "llevar" o escribe tu ubicación)`
					},
				},
			},
			complete: completeRepair,
		},
		{
			flow: domain.FlowMaintenance,
			steps: []step{
				{state: domain.StateMaintChoice, prompt: text(maintenanceIntro), branch: maintenanceChoice},
			},
		},
		{
			flow: domain.FlowOther,
			steps: []step{
				{state: domain.StateOtherRequest, field: fieldRequest, prompt: text(otherIntro), branch: otherRequest},
			},
			complete: completeOther,
		},
		{
			flow: domain.FlowBranches,
			steps: []step{
				{state: domain.StateBranchPick, field: fieldBranch, prompt: func(cat domain.Catalog, _ *domain.Session) string { return BranchList(cat) }, normalize: pickBranch},
			},
			complete: completeBranches,
		},
		{
			flow:     domain.FlowAppointment,
			steps:    appointment,
			complete: completeAppointment,
		},
		{
			flow: domain.FlowStatus,
			steps: []step{
				{state: domain.StateStatusTicket, field: fieldTicket, prompt: text(statusIntro)},
			},
			complete: completeStatus,
		},
		{
			flow: domain.FlowAdvisor,
			steps: []step{
				{state: domain.StateAdvisorName, field: fieldName, prompt: text(advisorIntro)},
				{
					state: domain.StateAdvisorReason,
					field: fieldReason,
					prompt: func(_ domain.Catalog, sess *domain.Session) string {
						return "Gracias " + sess.Answer(fieldName) + ". Cuéntanos brevemente en qué te podemos ayudar."
					},
				},
			},
			complete: completeAdvisor,
		},
		{
			flow: domain.FlowQuickConsult,
			steps: []step{
				{state: domain.StateQCName, field: fieldName, prompt: text(quickConsultIntro)},
				{state: domain.StateQCEmail, field: fieldEmail, prompt: text("¿Cuál es tu correo electrónico?")},
				{state: domain.StateQCZone, field: fieldZone, prompt: text("¿En qué zona te encuentras? (barrio/ciudad)")},
				{
					state:     domain.StateQCContactTime,
					field:     fieldContactTime,
					prompt:    text(choicePrompt("¿En qué horario prefieres que te contactemos?", contactTimeLabels)),
					normalize: choice(contactTimeLabels),
				},
				{
					state:     domain.StateQCDevice,
					field:     fieldDevice,
					prompt:    text(choicePrompt("¿Qué tipo de equipo es?", deviceLabels)),
					normalize: choice(deviceLabels),
				},
				{state: domain.StateQCBrand, field: fieldBrandModel, prompt: text("¿Marca y modelo del equipo? (ej: HP Pavilion 15)")},
				{
					state:     domain.StateQCOS,
					field:     fieldOS,
					prompt:    text(choicePrompt("¿Qué sistema operativo usa?", osLabels)),
					normalize: choice(osLabels),
				},
				{state: domain.StateQCSymptom, field: fieldSymptom, prompt: text("Describe el síntoma o problema principal.")},
				{state: domain.StateQCDuration, field: fieldDuration, prompt: text("¿Desde hace cuánto tiempo ocurre?")},
				{state: domain.StateQCRecent, field: fieldRecentRepair, prompt: text("¿Le han hecho reparaciones o cambios recientemente? (sí/no, cuáles)")},
			},
			complete: completeQuickConsult,
		},
	}

	out := make(map[domain.Flow]*flowDef, len(defs))
	for _, d := range defs {
		out[d.flow] = d
	}
	return out
}

func choicePrompt(question string, labels []string) string {
	var b strings.Builder
	b.WriteString(question)
	for i, l := range labels {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(l)
	}
	return b.String()
}

// --- Нормализация ответов ---

// samePhone: «mismo»: тот же номер, с которого пишут, без префикса whatsapp:.
func samePhone(_ domain.Catalog, sess *domain.Session, text string) (string, bool) {
	if strings.EqualFold(text, "mismo") {
		return strings.TrimPrefix(sess.UserID, "whatsapp:"), true
	}
	return text, true
}

// choice переводит цифру 1..len(labels) в подпись. Свободный текст сохраняется как есть.
func choice(labels []string) normalizer {
	return func(_ domain.Catalog, _ *domain.Session, text string) (string, bool) {
		if n, err := strconv.Atoi(stripKeycap(text)); err == nil && n >= 1 && n <= len(labels) {
			return labels[n-1], true
		}
		return text, true
	}
}

func pickBranch(cat domain.Catalog, _ *domain.Session, text string) (string, bool) {
	n, err := strconv.Atoi(stripKeycap(text))
	if err != nil || n < 1 || n > len(cat.Branches) {
		return "", false
	}
	return cat.Branches[n-1].ID, true
}

// stripKeycap: «1️⃣» -> «1».
func stripKeycap(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "\u20e3")
	s = strings.TrimSuffix(s, "\ufe0f")
	return s
}

// --- Ветвления ---

func maintenanceChoice(ctx context.Context, s *service, sess *domain.Session, text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "agendar"):
		return s.start(sess, domain.FlowAppointment)
	case strings.Contains(lower, "precio"), strings.Contains(lower, "costo"):
		return PricesText(s.cat) + "\n\n" + `¿Quieres agendar? (responde: "agendar")`
	default:
		return maintenanceRetry
	}
}

func otherRequest(ctx context.Context, s *service, sess *domain.Session, text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "catalogo") || strings.Contains(lower, "catálogo") || strings.Contains(lower, "inventario") {
		return PricesText(s.cat) + "\n\n" + otherAfterCatalog
	}
	sess.Set(fieldRequest, text)
	return s.finish(ctx, sess)
}
