package notifications

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Service handles sending notifications via various channels
type Service struct {
	teamsWebhookURL string
	agencyWebhooks  map[string]string
	email           emailConfig
	client          *resty.Client
	send            func(*gomail.Message) error
}

type emailConfig struct {
	to       string
	host     string
	port     int
	username string
	password string
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		teamsWebhookURL: cfg.TeamsWebhookURL,
		agencyWebhooks:  cfg.AgencyWebhooks,
		email: emailConfig{
			to:       cfg.NotificationEmail,
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			username: cfg.SMTPUsername,
			password: cfg.SMTPPassword,
		},
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = s.dialAndSend
	return s
}

// SendAlert pushes an alert to Teams, to the webhooks of every notified
// agency and to the notification mailbox. All channels are attempted; the
// returned error lists the ones that failed.
func (s *Service) SendAlert(ctx context.Context, alert models.Alert) error {
	var (
		mu       sync.Mutex
		failures []string
		wg       sync.WaitGroup
	)
	fail := func(channel string, err error) {
		logrus.Errorf("Failed to send alert %s to %s: %v", alert.ID, channel, err)
		mu.Lock()
		failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
		mu.Unlock()
	}

	if s.teamsWebhookURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.postJSON(ctx, s.teamsWebhookURL, buildAlertCard(alert)); err != nil {
				fail("Teams", err)
			}
		}()
	}

	for _, agency := range alert.AgenciesNotified {
		url, ok := s.agencyWebhooks[agency]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(agency, url string) {
			defer wg.Done()
			payload := map[string]any{"type": "threat_alert", "agency": agency, "alert": alert}
			if err := s.postJSON(ctx, url, payload); err != nil {
				fail("webhook "+agency, err)
			}
		}(agency, url)
	}

	if s.email.to != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sendAlertEmail(alert); err != nil {
				fail("Email", err)
			}
		}()
	}

	wg.Wait()

	if len(failures) > 0 {
		sort.Strings(failures)
		return fmt.Errorf("notification errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

// SendDigest sends a situation digest via Teams and email.
func (s *Service) SendDigest(ctx context.Context, digest *models.Digest) error {
	var errors []string

	if s.teamsWebhookURL != "" {
		if err := s.postJSON(ctx, s.teamsWebhookURL, buildDigestCard(digest)); err != nil {
			logrus.Errorf("Failed to send Teams digest: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.email.to != "" {
		if err := s.sendDigestEmail(digest); err != nil {
			logrus.Errorf("Failed to send digest email: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) postJSON(ctx context.Context, url string, body any) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.email.host, s.email.port, s.email.username, s.email.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) newMessage(subject, text, html string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.email.username)
	m.SetHeader("To", s.email.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)
	return m
}

func (s *Service) sendAlertEmail(alert models.Alert) error {
	html, err := renderAlertHTML(alert)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}
	subject := fmt.Sprintf("[%s] Threat alert: %s", alert.ThreatLevel, alert.Title)
	return s.send(s.newMessage(subject, buildAlertText(alert), html))
}

func (s *Service) sendDigestEmail(digest *models.Digest) error {
	html, err := renderDigestHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}
	subject := fmt.Sprintf("Fusion Centre %s Digest (%d reports, %d alerts)",
		periodTitle(digest.Period), digest.TotalReports, digest.TotalAlerts)
	return s.send(s.newMessage(subject, buildDigestText(digest), html))
}
