package emailsvc

import (
	"log"

	"github.com/trezcool/elimu/core"
)

// New returns the Sendgrid service when an API key is configured, the console service otherwise.
func New(conf *core.Config, std *log.Logger, logger core.Logger) core.EmailService {
	if conf.SendgridApiKey != "" && !conf.TestMode {
		return NewSendgridService(conf, logger)
	}
	return NewConsoleService(conf, std, logger)
}
