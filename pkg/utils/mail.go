package utils

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// AlertMailer шлёт письма операторам, когда после бродкаста не удалось
// обновить леджер - такие расхождения сверяются руками
type AlertMailer struct {
	host     string
	port     int
	from     string
	password string
	to       string
}

func NewAlertMailer(host string, port int, from string, password string, to string) *AlertMailer {
	return &AlertMailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		to:       to,
	}
}

func (m *AlertMailer) ReconciliationAlert(txid string, requestID string, addressID int64, account string, cause error) {
	subject := "Ledger reconciliation required: " + txid

	body := fmt.Sprintf(`<body>
  <h2>Funds were broadcast but the ledger update failed</h2>
  <table cellpadding="4">
    <tr><td>txid</td><td><b>%s</b></td></tr>
    <tr><td>request id</td><td><b>%s</b></td></tr>
    <tr><td>payment address id</td><td><b>%d</b></td></tr>
    <tr><td>account</td><td><b>%s</b></td></tr>
    <tr><td>error</td><td><b>%s</b></td></tr>
  </table>
  <p>Mark the spent outputs manually before the next send from this address.</p>
</body>`, txid, requestID, addressID, account, cause)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.from, m.password)
	if err := d.DialAndSend(msg); err != nil {
		logrus.WithFields(logrus.Fields{"txid": txid}).Errorf("error.alertMail: %s", err)
		return
	}
	logrus.WithFields(logrus.Fields{"txid": txid, "request_id": requestID}).Info("alertMail.sent")
}
