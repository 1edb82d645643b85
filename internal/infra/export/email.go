package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

// EmailSender delivers the audio link through the SendGrid v3 mail API.
type EmailSender struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	fromEmail  string
	fromName   string
	log        *logger.Logger
}

func NewEmailSender(apiKey, baseURL, fromEmail, fromName string, log *logger.Logger) *EmailSender {
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	return &EmailSender{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fromEmail:  fromEmail,
		fromName:   fromName,
		log:        log.With("exporter", "email"),
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailSendPayload struct {
	Personalizations []struct {
		To []emailAddress `json:"to"`
	} `json:"personalizations"`
	From    emailAddress `json:"from"`
	Subject string       `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (e *EmailSender) Send(ctx context.Context, audioURL, email string) error {
	if e.apiKey == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}

	payload := mailSendPayload{
		From:    emailAddress{Email: e.fromEmail, Name: e.fromName},
		Subject: "Your podcast is ready",
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []emailAddress `json:"to"`
	}{To: []emailAddress{{Email: email}}})
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{
		Type:  "text/plain",
		Value: fmt.Sprintf("The synthesized audio for your analysis report is ready:\n\n%s\n", audioURL),
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mail dispatch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	e.log.Info("audio link mailed", "to", email)
	return nil
}
