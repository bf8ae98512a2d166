package bot

import (
	"strings"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

// Estimate: базовая цена ремонта плюс каждая надбавка, чьё ключевое слово встречается в описании.
// Каждая надбавка учитывается не больше одного раза, порядок правил не важен.
func Estimate(cat domain.Catalog, problem string) int {
	total := cat.Prices.RepairMin
	for _, s := range cat.Surcharges {
		if containsAny(problem, s.Keywords) {
			total += s.Amount
		}
	}
	return total
}

// IsRemoteCandidate: можно ли решить проблему удалённо, без визита в мастерскую.
func IsRemoteCandidate(keywords []string, description string) bool {
	return containsAny(description, keywords)
}

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
