package email

// Config holds email service configuration. The Postmark tokens are optional
// so that deployments without an email provider still run; the contact
// module degrades to saving messages without sending.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"onboarding@purenote.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"purenote.contact@gmail.com"`
}

// Configured reports whether a real email provider can be constructed.
func (c Config) Configured() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
