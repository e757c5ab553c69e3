// Package engine wires the consensus state machine, its storage and
// scheduler collaborators, and the admin surface into one runnable
// process (§6/§7).
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
	"github.com/gochain/consensus/pkg/scheduler"
)

// Engine owns every long-lived collaborator and the three scheduler
// loops that drive transactions through the state machine.
type Engine struct {
	Store    consensus.Store
	Registry consensus.Registry
	Executor consensus.Executor
	Bus      *LoggingBus
	Metrics  *Metrics
	Config   *AdminConfig
	Log      *logger.Logger

	coord *scheduler.Coordinator
}

// New builds an Engine from its collaborators. The caller owns Store's
// and Registry's lifecycle (Close/shutdown); Engine only drives them.
// Pass prometheus.DefaultRegisterer in cmd/consensusd, or a fresh
// prometheus.NewRegistry() per Engine in tests to avoid collisions.
func New(store consensus.Store, registry consensus.Registry, executor consensus.Executor, log *logger.Logger, reg prometheus.Registerer) *Engine {
	metrics := NewMetrics(reg)
	return &Engine{
		Store:    store,
		Registry: registry,
		Executor: executor,
		Bus:      NewLoggingBus(log, metrics),
		Metrics:  metrics,
		Config:   NewAdminConfig(),
		Log:      log,
		coord:    scheduler.NewCoordinator(),
	}
}

// Run starts the crawler, dispatcher, and appeal window loops, plus a
// queue-depth metrics poller, and blocks until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	rollback := scheduler.NewRollback(e.Store, e.coord, e.Log)

	go scheduler.RunCrawler(ctx, e.Store, e.coord, e.pollInterval, e.Log)
	go scheduler.RunDispatcher(ctx, e.Store, e.coord, e.newTxContext, e.pollInterval, e.Log)
	go scheduler.RunAppealWindow(ctx, e.Store, e.coord, e.newTxContext, rollback, e.Metrics, e.Config.FinalityWindow, e.pollInterval, e.Log)
	go e.pollQueueDepth(ctx)

	<-ctx.Done()
	e.Log.Info("engine: shutting down (finality_window=%s, poll_interval=%s)",
		humanize.RelTime(time.Now(), time.Now().Add(e.Config.FinalityWindow()), "", ""),
		e.Config.PollInterval())
}

func (e *Engine) pollInterval() time.Duration {
	return e.Config.PollInterval()
}

func (e *Engine) pollQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(e.Config.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticker.Reset(e.Config.PollInterval())
			for _, address := range e.coord.Addresses() {
				e.Metrics.SetQueueDepth(address, e.coord.QueueLen(address))
			}
		}
	}
}

func (e *Engine) newTxContext(ctx context.Context, tx *consensus.Transaction) *consensus.TransactionContext {
	return &consensus.TransactionContext{
		Ctx:                   ctx,
		Tx:                    tx,
		Store:                 e.Store,
		Registry:              e.Registry,
		Executor:              e.Executor,
		Events:                e.Bus,
		ValidatorConcurrency:  e.Config.ValidatorCeiling(),
	}
}

// SubmitTransaction creates a new Pending transaction addressed to a
// contract and hands it to the store for the crawler to pick up. The
// wire/RPC surface that would normally front this is out of scope; this
// is the entry point tests use directly (the CLI does not call it).
func (e *Engine) SubmitTransaction(ctx context.Context, from, to string, kind consensus.Kind, payload []byte, leaderOnly bool) (*consensus.Transaction, error) {
	tx := &consensus.Transaction{
		Hash:                 uuid.NewString(),
		FromAddress:          from,
		ToAddress:            to,
		Kind:                 kind,
		Payload:              payload,
		LeaderOnly:           leaderOnly,
		ConfigRotationRounds: consensus.DefaultConfigRotationRounds,
		Status:               consensus.StatusPending,
		CreatedAt:            time.Now().UnixNano(),
	}
	if err := e.Store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}
	return tx, nil
}
