package email

import (
	"fmt"
	"net/smtp"
	"net/url"
)

// SMTPServerConfig holds all the necessary configuration for connecting to an SMTP server.
type SMTPServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string // The "From" email address
}

// EmailService provides a method for sending emails.
type EmailService struct {
	config SMTPServerConfig
	auth   smtp.Auth
}

// NewEmailService creates a new service for sending emails.
func NewEmailService(config SMTPServerConfig) *EmailService {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
	return &EmailService{
		config: config,
		auth:   auth,
	}
}

// SendInvitationEmail constructs and sends a registration invitation email.
// The link pre-fills the registration form with the invited email and, for
// admin invitations, flags that a team will be created.
func (s *EmailService) SendInvitationEmail(recipientEmail, inviterName, teamName, role, frontendURL string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	params := url.Values{}
	params.Set("email", recipientEmail)
	var subject string
	switch role {
	case "admin":
		subject = "You've been invited to administer RideOn!"
		params.Set("appadmin", "true")
	case "team_admin":
		subject = "You've been invited to lead a team on RideOn!"
		params.Set("admin", "true")
	default:
		subject = fmt.Sprintf("You've been invited to join the team '%s' on RideOn!", teamName)
		params.Set("team", teamName)
	}
	registrationLink := fmt.Sprintf("%s/register?%s", frontendURL, params.Encode())

	body := fmt.Sprintf(
		"Hi there,\n\n%s has invited you to start tracking your cycling miles on RideOn.\n\nFollow this link to sign up and accept your invitation:\n%s\n\nSee you on the road!\nThe RideOn Team",
		inviterName,
		registrationLink,
	)

	message := []byte(
		"To: " + recipientEmail + "\r\n" +
			"From: " + s.config.Sender + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	err := smtp.SendMail(addr, s.auth, s.config.Sender, []string{recipientEmail}, message)
	if err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}

	return nil
}
