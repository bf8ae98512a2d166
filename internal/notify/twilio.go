package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// Twilio шлёт текст оператору через WhatsApp Messages API.
type Twilio struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	to         string
	client     *http.Client
}

func NewTwilio(accountSID, authToken, from, to string) *Twilio {
	return &Twilio{
		baseURL:    twilioBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       whatsappAddr(from),
		to:         whatsappAddr(to),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Twilio) Notify(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("From", t.from)
	form.Set("To", t.to)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.baseURL+"/Accounts/"+t.accountSID+"/Messages.json",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errors.New("twilio api error: " + resp.Status + " body=" + string(body))
	}

	return nil
}

// whatsappAddr: Twilio ждёт адреса вида whatsapp:+506...
func whatsappAddr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "whatsapp:") {
		return s
	}
	return "whatsapp:" + s
}
