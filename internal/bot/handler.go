package bot

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

const unknownSenderText = "No pudimos identificar tu número. Intenta de nuevo más tarde."

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type inbound struct {
	From string `json:"From"`
	Body string `json:"Body"`
}

// HandleWebhook: вход от Twilio WhatsApp. Ответ всегда один, в TwiML.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	msg, ok := parseInbound(r)
	if !ok || msg.From == "" {
		WriteTwiML(w, http.StatusOK, unknownSenderText)
		return
	}

	reply := h.svc.HandleMessage(r.Context(), msg.From, msg.Body)
	WriteTwiML(w, http.StatusOK, reply)
}

// SenderFromRequest достаёт номер отправителя: нужен и хендлеру, и лимитеру.
func SenderFromRequest(r *http.Request) string {
	msg, _ := parseInbound(r)
	return msg.From
}

func parseInbound(r *http.Request) (inbound, bool) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		// тело читается дважды (лимитер и хендлер), поэтому возвращаем его на место
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return inbound{}, false
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			return inbound{}, false
		}
		msg.From = strings.TrimSpace(msg.From)
		return msg, true
	}

	if err := r.ParseForm(); err != nil {
		return inbound{}, false
	}
	msg := inbound{
		From: strings.TrimSpace(firstNonEmpty(r.PostForm.Get("From"), r.PostForm.Get("from"))),
		Body: firstNonEmpty(r.PostForm.Get("Body"), r.PostForm.Get("body")),
	}
	return msg, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
