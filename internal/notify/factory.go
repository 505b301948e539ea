package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kural1554/Finance/internal/config"
)

func NewSenderFromConfig(cfg config.Config, logger *slog.Logger) (Sender, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.NotifierMode))
	if mode == "" || mode == "log" {
		return NewLogSender(logger), nil
	}
	if mode != "smtp" {
		return nil, fmt.Errorf("invalid NOTIFIER_MODE: %s", cfg.NotifierMode)
	}
	return NewSMTPSender(cfg.SMTPHost, int(cfg.SMTPPort), cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
}
