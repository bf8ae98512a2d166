package bot

import (
	"encoding/xml"
	"net/http"
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// WriteTwiML отвечает отправителю одним сообщением в формате Twilio.
func WriteTwiML(w http.ResponseWriter, status int, text string) {
	body, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		http.Error(w, "reply encoding error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
