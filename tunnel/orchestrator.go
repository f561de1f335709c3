package tunnel

import (
	"context"
	"errors"

	"github.com/G4brym/openclaw-cloudflare/observe"
	"github.com/G4brym/openclaw-cloudflare/secret"
)

// OrchestratorConfig configures the exposure orchestrator.
type OrchestratorConfig struct {
	// Supervisor starts the connector in ModeManaged. Required.
	Supervisor *Supervisor

	// Logger receives mode decisions and start outcomes. If nil, a
	// default info-level logger is used.
	Logger observe.Logger

	// Secrets resolves the configured token value. A nil resolver
	// still performs environment expansion.
	Secrets *secret.Resolver
}

// Orchestrator decides, per exposure mode, whether a connector process
// should be started. Start failures degrade the feature to "no tunnel";
// they are never propagated to the caller.
type Orchestrator struct {
	supervisor *Supervisor
	logger     observe.Logger
	secrets    *secret.Resolver
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(config OrchestratorConfig) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = observe.NewLogger("info")
	}
	return &Orchestrator{
		supervisor: config.Supervisor,
		logger:     logger.WithComponent("tunnel"),
		secrets:    config.Secrets,
	}
}

// Start dispatches on the exposure mode and returns the stop function
// for whatever it started, or nil when nothing is running. The returned
// stop function is safe to call at any time, including before the
// tunnel finished starting.
func (o *Orchestrator) Start(ctx context.Context, mode Mode, tokenValue string) func() {
	switch mode {
	case ModeOff:
		return nil

	case ModeAccessOnly:
		o.logger.Info(ctx, "tunnel managed externally; verifying Access tokens only")
		return nil

	case ModeManaged:
		return o.startManaged(ctx, tokenValue)

	default:
		// Closed enumeration: anything else is a configuration error,
		// never coerced to off.
		o.logger.Error(ctx, "unknown exposure mode",
			observe.Field{Key: "mode", Value: string(mode)},
		)
		return nil
	}
}

func (o *Orchestrator) startManaged(ctx context.Context, tokenValue string) func() {
	token, err := o.secrets.ResolveValue(ctx, tokenValue)
	if err != nil {
		o.logger.Error(ctx, "tunnel token could not be resolved",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil
	}
	if token == "" {
		o.logger.Error(ctx, "exposure mode is managed but no tunnel token is configured")
		return nil
	}

	handle, err := o.supervisor.Start(ctx, token)
	if err != nil {
		fields := []observe.Field{{Key: "error", Value: err.Error()}}
		var startErr *StartError
		if errors.As(err, &startErr) && len(startErr.Logs) > 0 {
			fields = append(fields, observe.Field{Key: "output", Value: startErr.Logs})
		}
		o.logger.Error(ctx, "tunnel start failed", fields...)
		return nil
	}

	o.logger.Info(ctx, "tunnel connector registered",
		observe.Field{Key: "connector_id", Value: handle.ConnectorID},
		observe.Field{Key: "pid", Value: handle.PID},
	)
	return handle.Stop
}
