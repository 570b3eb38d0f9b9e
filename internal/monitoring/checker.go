package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/metrics"
)

const defaultCheckInterval = 5 * time.Minute

// Checker watches crawl health and Places spend while the server runs. Each
// pass refreshes the spend and budget gauges and forwards any alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
	webhook   bool
}

// NewChecker wires a collector and alerter on the monitoring schedule.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  cfg.LookbackWindowHours,
		webhook:   cfg.WebhookURL != "",
	}
}

// Run checks once at startup so the gauges are populated before the first
// scrape, then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: watching places budget",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)
	if ctx.Err() != nil {
		return
	}
	c.check(ctx, log)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) []Alert {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect snapshot", zap.Error(err))
		return nil
	}
	metrics.PlacesSpendUSD.Set(snap.SpendUSD)
	metrics.PlacesBudgetUsage.Set(snap.BudgetUsage)

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return nil
	}
	for _, a := range alerts {
		log.Warn("monitoring: alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
	}
	if !c.webhook {
		return alerts
	}
	if sent := c.alerter.SendAlerts(ctx, alerts); sent < len(alerts) {
		log.Warn("monitoring: webhook delivered partially", zap.Int("sent", sent), zap.Int("alerts", len(alerts)))
	}
	return alerts
}
