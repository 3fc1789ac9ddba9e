package vmd

import (
	"fmt"
	"net/smtp"
	"strings"
)

const DefaultSubject = "Vite Ma Dose - Notification"

type Notifier interface {
	Notify(subject string, body string) error
}

// EmailNotifier sends mail through the configured SMTP server, or only logs
// when no host is configured.
type EmailNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(config *Config) *EmailNotifier {
	return &EmailNotifier{
		Host:     config.SmtpHost,
		Port:     config.SmtpPort,
		Username: config.SmtpUsername,
		Password: config.SmtpPassword,
		From:     config.FromEmailAddress,
		To:       append([]string(nil), config.NotifyEmailAddrs...),
		send:     smtp.SendMail,
	}
}

func (n *EmailNotifier) Notify(subject string, body string) error {
	Log.Infof("Subject: %s", subject)
	Log.Infof("Body: %s", body)

	if len(n.Host) == 0 || len(n.To) == 0 {
		return nil
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("From: %s\r\n", n.From))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(n.To, ", ")))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	auth := smtp.PlainAuth("", n.Username, n.Password, n.Host)

	err := n.send(fmt.Sprintf("%s:%d", n.Host, n.Port), auth, n.From, n.To, []byte(sb.String()))
	if err != nil {
		Log.Errorf("sendEmail: %+v", err)
	}

	return err
}

func notifyAvailable(notifier Notifier, centre *Centre) error {
	body := fmt.Sprintf("New appointments at %s (%s)", centre.Name, centre.Department)
	if centre.NextAppointment != nil {
		body += fmt.Sprintf(", next one: %s", *centre.NextAppointment)
	}
	if len(centre.Url) > 0 {
		body += fmt.Sprintf("\r\nBook: %s", centre.Url)
	}
	return notifier.Notify(DefaultSubject, body)
}
