package daemon

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anstrom/probeforge/internal/api/handlers"
	"github.com/anstrom/probeforge/internal/db"
	"github.com/anstrom/probeforge/internal/engine"
	"github.com/anstrom/probeforge/internal/logging"
	"github.com/anstrom/probeforge/internal/metrics"
	"github.com/anstrom/probeforge/internal/probes"
	"github.com/anstrom/probeforge/internal/scanning"
	"github.com/anstrom/probeforge/internal/workers"
)

// probeEngineSchedule is the cron expression a full probe-engine pass runs
// on: once an hour, offset off the hour so it doesn't line up with the
// daemon's own health-check tick.
const probeEngineSchedule = "17 * * * *"

// multiInstrumentation fans out every engine.Instrumentation observation to
// both the Prometheus-backed recorder and a websocket handler, so a tick's
// spawned/dropped/retried/stashed/in-flight counts reach connected clients
// the same moment they reach the daemon's own metrics registry.
type multiInstrumentation struct {
	metrics engine.Instrumentation
	ws      *handlers.WebSocketHandler
}

func (m multiInstrumentation) Spawned(n int) { m.metrics.Spawned(n); m.ws.Spawned(n) }
func (m multiInstrumentation) Dropped()      { m.metrics.Dropped(); m.ws.Dropped() }
func (m multiInstrumentation) Retried()      { m.metrics.Retried(); m.ws.Retried() }
func (m multiInstrumentation) Stashed()      { m.metrics.Stashed(); m.ws.Stashed() }
func (m multiInstrumentation) InFlight(n int) { m.metrics.InFlight(n); m.ws.InFlight(n) }
func (m multiInstrumentation) TickDuration(d time.Duration) {
	m.metrics.TickDuration(d)
	m.ws.TickDuration(d)
}

// initProbeEngine wires internal/engine's scheduler to the enabled scan
// targets table, running one Feeder/Output pass per cron fire. Unlike
// initAPIServer/initDatabase this is additive: a probe-engine failure logs
// and skips the tick rather than failing daemon startup, since the legacy
// internal/worker.Scheduler path remains available independently.
func (d *Daemon) initProbeEngine() error {
	pec := d.config.ProbeEngine

	boundary := engine.Unlimited()
	if pec.MaxInFlight > 0 {
		boundary = engine.Limited(pec.MaxInFlight).WithReserve(pec.FDReserve)
	}

	instrumentation := d.engineInstrumentation
	d.engineWS = handlers.NewWebSocketHandler(d.database, slog.Default(), metrics.NewRegistry())
	if d.apiServer != nil {
		d.apiServer.GetRouter().HandleFunc("/api/v1/ws/engine", d.engineWS.GeneralWebSocket)
		instrumentation = multiInstrumentation{metrics: d.engineInstrumentation, ws: d.engineWS}
	}

	job := probes.NewNmapScanJob(d.database)
	pool := engine.NewPool[probes.NmapTarget, *scanning.ScanResult](
		job,
		boundary,
		engine.PoolConfig{
			DefaultTTL:         pec.DefaultTTL,
			DefaultMaxRetries:  pec.DefaultMaxRetries,
			StashConsumesRetry: pec.StashConsumesRetry,
			Instrumentation:    instrumentation,
		},
		func() *scanning.ScanResult { return nil },
	)

	feeder := workers.NewTargetFeeder(db.NewScanTargetRepository(d.database))
	sink := workers.NewScanResultSink(
		db.NewHostRepository(d.database),
		db.NewPortScanRepository(d.database),
	)

	runCfg := engine.RunConfig{
		ChunkSize:    pec.ChunkSize,
		TickInterval: pec.TickInterval,
	}

	d.probeEngineCron = cron.New()
	_, err := d.probeEngineCron.AddFunc(probeEngineSchedule, func() {
		logging.Info("daemon: probe engine pass starting")
		engine.Run(pool, feeder, sink, runCfg)
		logging.Info("daemon: probe engine pass complete")
	})
	if err != nil {
		return err
	}

	d.probeEngineCron.Start()
	return nil
}

// stopProbeEngine stops the cron scheduler driving the probe engine, if it
// was started.
func (d *Daemon) stopProbeEngine() {
	if d.probeEngineCron != nil {
		ctx := d.probeEngineCron.Stop()
		<-ctx.Done()
	}
	if d.engineWS != nil {
		if err := d.engineWS.Close(); err != nil {
			logging.Warn("daemon: error closing engine websocket handler", "error", err)
		}
	}
}
