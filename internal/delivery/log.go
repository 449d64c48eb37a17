package delivery

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogGateway is the dry-run channel used when no provider is configured.
// It includes the code in the log line only when revealCode is set.
type LogGateway struct {
	channel    string
	revealCode bool
	logger     *logrus.Logger
}

func NewLogGateway(channel string, revealCode bool, logger *logrus.Logger) *LogGateway {
	return &LogGateway{channel: channel, revealCode: revealCode, logger: logger}
}

func (g *LogGateway) Send(_ context.Context, msg Message) error {
	fields := logrus.Fields{
		"channel": g.channel,
		"to":      msg.To,
	}
	if g.revealCode {
		fields["otp"] = msg.Code
	}
	g.logger.WithFields(fields).Info("OTP delivery skipped (dry run)")
	return nil
}
