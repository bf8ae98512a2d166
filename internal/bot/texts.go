package bot

import (
	"fmt"
	"strings"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
)

func MainMenu(cat domain.Catalog) string {
	return `🖥️ *` + strings.ToUpper(cat.ShopName) + ` - Menú Principal*

Selecciona una opción (escribe el número):
1️⃣ Reparación de computadoras
2️⃣ Mantenimiento de computadoras
3️⃣ Otros servicios
4️⃣ Sucursales / Ubicaciones
5️⃣ Agenda una cita
6️⃣ Precios / Productos
7️⃣ Estado de mi reparación
8️⃣ Hablar con un asesor
9️⃣ Consulta técnica rápida
ESCRIBE: *MENU* para volver aquí en cualquier momento.`
}

func welcomeText(cat domain.Catalog) string {
	return "¡Hola! 👋 Soy " + cat.ShopName + ".\n\n" + MainMenu(cat)
}

func withMenu(cat domain.Catalog, text string) string {
	return text + "\n\n" + MainMenu(cat)
}

const (
	invalidOptionText = "Opción inválida."
	invalidNumberText = "Número inválido."
	startOverText     = "Lo siento, algo salió mal con tu conversación. Empecemos de nuevo."
	fallbackText      = `🤖 Lo siento, no entendí completamente. Puedes escribir "MENU" para ver opciones o "AI <tu pregunta>" para usar asistencia inteligente.`
	aiDisabledText    = "Lo siento, el servicio de IA no está configurado en el servidor. Contacta al administrador."
	aiErrorText       = "Error en IA: intenta más tarde."
	aiBackToMenuText  = `Escribe "MENU" para volver al menú principal.`
)

// --- Промпты для ИИ ---

const aiCommandSystemPrompt = `Eres un asistente técnico para %s. Responde en español, conciso, amigable.`

const aiFallbackSystemPrompt = `Eres soporte técnico para un taller de reparación de computadoras, habla en español corto y directo.`

const aiFallbackUserPrompt = `Eres un asistente para %s. Usuario: "%s". Responde brevemente en español y ofrece: (1) sugerencia automática, (2) pregunta para obtener más detalles, (3) ofrecer agendar si es pertinente.`

// --- Каталог ---

func BranchList(cat domain.Catalog) string {
	var b strings.Builder
	b.WriteString("🏢 *Sucursales disponibles:*\n\n")
	for i, br := range cat.Branches {
		fmt.Fprintf(&b, "%d. %s — %s — Horario: %s\n", i+1, br.Name, br.Address, br.Hours)
	}
	b.WriteString("\nEscribe el número de la sucursal para elegirla.")
	return b.String()
}

func PricesText(cat domain.Catalog) string {
	p := cat.Prices
	var b strings.Builder
	b.WriteString("💲 *Precios principales*\n\n")
	fmt.Fprintf(&b, "• Reparación (mínimo): %s\n", colones(p.RepairMin))
	fmt.Fprintf(&b, "• Formateo e instalación: %s\n", colones(p.Formatting))
	fmt.Fprintf(&b, "• Mantenimiento (limpieza + diagnóstico): %s\n", colones(p.Cleaning))
	fmt.Fprintf(&b, "• Cambio de pasta térmica: %s\n", colones(p.ThermalPaste))

	if len(cat.Inventory) > 0 {
		b.WriteString("\n📦 *Inventario disponible:*\n")
		for _, it := range cat.Inventory {
			fmt.Fprintf(&b, "- %s: %s (stock: %d)\n", it.Name, colones(it.Price), it.Stock)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func branchDetails(br domain.Branch) string {
	return fmt.Sprintf("Has seleccionado: *%s*\n\nDirección: %s\nHorario: %s\nTeléfono: %s", br.Name, br.Address, br.Hours, br.Phone)
}

func colones(amount int) string {
	return fmt.Sprintf("₡%d", amount)
}

// --- Подсказки шагов ---

const (
	repairIntro = `🔧 *Reparación de Computadoras*
Ofrecemos formateo, eliminación de virus, reparación de hardware, recuperación de datos...
¿Podrías describir el problema que tienes? (Ej: "No enciende", "Pantalla azul", "Virus")
Escribe tu descripción.`

	maintenanceIntro = `🧹 *Mantenimiento de Computadoras*
Incluye limpieza interna, cambio de pasta térmica, diagnóstico.
¿Quieres agendar ahora o prefieres que te enviemos el precio estimado? (responde: "agendar" o "precio")`

	maintenanceRetry = `No entendí. Puedes escribir "agendar" o "precio".`

	otherIntro = `📌 *Otros servicios*
Soporte remoto, instalación de programas, redes, impresoras, venta de accesorios.
Escribe qué servicio necesitas o escribe "catalogo" para ver inventario.`

	otherAfterCatalog = `Escribe qué servicio necesitas o "MENU" para volver.`

	statusIntro = `🔎 *Estado de tu reparación*
Escribe el número de caso o de cita que te dimos (ej: 3f9a1c2b).`

	advisorIntro = `👩‍💻 *Hablar con un asesor*
Con gusto te comunicamos con una persona. ¿Cuál es tu nombre?`

	quickConsultIntro = `🩺 *Consulta técnica rápida*
Te haremos unas preguntas cortas para orientarte. ¿Cuál es tu nombre completo?`
)
