package service

import (
	"github.com/sirupsen/logrus"

	"custody_payments_back/pkg/events"
)

// ConsoleEventLogger пишет каждое событие парсера в лог; подписывается
// последним, после ингеста и нотификаций
type ConsoleEventLogger struct{}

func NewConsoleEventLogger() *ConsoleEventLogger {
	return &ConsoleEventLogger{}
}

func (l *ConsoleEventLogger) HandleTxEvent(txEvent events.TxEvent) {
	logrus.WithFields(logrus.Fields{
		"txid":          txEvent.Tx.TXID,
		"asset":         txEvent.Tx.Asset,
		"confirmations": txEvent.Confirmations,
		"block_seq":     txEvent.BlockSeq,
	}).Debug("tx.event")
}
