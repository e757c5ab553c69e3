package engine

import (
	"context"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
)

// LoggingBus is the produced consensus.EventBus: every published event is
// logged and folded into the matching metric. The wire/transport surface
// (websocket/SSE fan-out to clients) is explicitly out of scope; a real
// deployment would wrap this with a pub/sub transport at the API layer.
type LoggingBus struct {
	log     *logger.Logger
	metrics *Metrics
}

func NewLoggingBus(log *logger.Logger, metrics *Metrics) *LoggingBus {
	return &LoggingBus{log: log, metrics: metrics}
}

func (b *LoggingBus) Publish(ctx context.Context, ev consensus.Event) {
	switch ev.Level {
	case consensus.EventError:
		b.log.Error("[%s] %s %s: %s", ev.Name, ev.Address, ev.TxHash, ev.Message)
	case consensus.EventSuccess:
		b.log.Info("[%s] %s %s: %s", ev.Name, ev.Address, ev.TxHash, ev.Message)
	default:
		b.log.Debug("[%s] %s %s: %s", ev.Name, ev.Address, ev.TxHash, ev.Message)
	}

	if ev.Name == "transaction_status_updated" {
		switch ev.Message {
		case "Accepted", "Validator Appeal Failed", "Leader Appeal Successful":
			b.metrics.RoundsAccepted.Inc()
		case "Undetermined", "Leader Appeal Failed":
			b.metrics.RoundsUndetermined.Inc()
		}
	}
}
