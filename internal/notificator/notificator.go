package notificator

import (
	"runtime/debug"

	"github.com/solchat/colloquium/pkg/logger"
)

// OpsNotificator fans operational alerts out to the configured channels.
// Alerts are best-effort; a panicking channel must never take the service
// down with it.
type OpsNotificator struct {
	logger *logger.Logger

	telegram *TelegramNotificator
}

func NewOpsNotificator(logger *logger.Logger, telegram *TelegramNotificator) *OpsNotificator {
	return &OpsNotificator{logger: logger, telegram: telegram}
}

// safeCall runs a function with panic recovery
func (n *OpsNotificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (n *OpsNotificator) Alert(message string) {
	n.logger.Warn("Operational alert: ", message)
	if n.telegram != nil {
		n.safeCall(func() { n.telegram.SendAlert(message) }, "telegramAlert")
	}
}
