package mail

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/example/embutidos/internal/config"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender 邮件发送接口，测试中可替换
type Sender interface {
	Send(msg Message) error
}

type smtpSender struct {
	cfg    *config.MailConfig
	dialer *gomail.Dialer
}

// NewSender 基于 SMTP 的发送器；Host 为空时返回只打日志的实现
func NewSender(cfg *config.MailConfig) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpSender) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: empty recipient")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}

// LogSender 不发送，只记录日志
type LogSender struct{}

func (LogSender) Send(msg Message) error {
	zap.L().Info("mail skipped, smtp not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
