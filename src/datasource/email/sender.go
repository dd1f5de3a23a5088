package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"RentalDashboard/src/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report 需要发送的报表
type Report struct {
	Subject  string
	Body     string
	Filename string
	Content  []byte
}

// NewReportEmail 构造带工作簿附件的邮件
func NewReportEmail(c config.SendEmailConfig, r Report) (*email.Email, error) {
	e := email.NewEmail()
	e.From = c.From
	e.To = c.To
	e.Subject = r.Subject
	if e.Subject == "" {
		e.Subject = c.Subject
	}
	e.Text = []byte(r.Body)

	if len(r.Content) > 0 {
		if _, err := e.Attach(bytes.NewReader(r.Content), r.Filename, xlsxContentType); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// SendReport 通过 SMTP 发送报表；465 端口走隐式 TLS，其余端口走 STARTTLS
func SendReport(c config.SendEmailConfig, r Report) error {
	e, err := NewReportEmail(c, r)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	smtpAddr := c.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host, port, err := net.SplitHostPort(smtpAddr)
	if err != nil {
		return fmt.Errorf("SMTP地址无效 %s: %w", smtpAddr, err)
	}

	auth := smtp.PlainAuth("", c.Username, c.Password, host)
	tlsCfg := &tls.Config{ServerName: host}
	if port == "465" {
		err = e.SendWithTLS(smtpAddr, auth, tlsCfg)
	} else {
		err = e.SendWithStartTLS(smtpAddr, auth, tlsCfg)
	}
	if err != nil {
		return fmt.Errorf("邮件发送失败 (Server: %s): %w", smtpAddr, err)
	}
	return nil
}
