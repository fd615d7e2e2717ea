package bootstrap

import (
	"context"
	"errors"
	"os"

	"github.com/kbukum/marathon/component"
	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/observability"
)

// ExitFunc terminates the process. os.Exit in production.
type ExitFunc func(code int)

// Orchestrator runs the connect sequence and applies the failure policy.
//
// Components start strictly in registration order; the first failure aborts
// the rest. With FailFast the failure is logged and the exit function is
// called with status 1. Without it, components that already started are
// stopped and the error is returned.
type Orchestrator struct {
	registry *component.Registry
	log      *logger.Logger
	failFast bool
	exit     ExitFunc
}

// NewOrchestrator creates an orchestrator over registry. A nil exit means os.Exit.
func NewOrchestrator(registry *component.Registry, log *logger.Logger, failFast bool, exit ExitFunc) *Orchestrator {
	if exit == nil {
		exit = os.Exit
	}
	return &Orchestrator{
		registry: registry,
		log:      log,
		failFast: failFast,
		exit:     exit,
	}
}

// FailFast reports whether failures terminate the process.
func (o *Orchestrator) FailFast() bool { return o.failFast }

// Initialize connects every registered component in order. A failure is
// reported as a CONNECTION_FAILED AppError naming the component.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "bootstrap.connect")
	defer span.End()

	if err := o.registry.StartAll(ctx); err != nil {
		connErr := connectError(err)
		observability.SetSpanError(ctx, connErr)
		return o.Fail(ctx, connErr)
	}
	return nil
}

// Fail applies the failure policy to an unrecoverable startup error and
// returns it. When the exit function returns (as it does in tests) the
// caller must still abort.
func (o *Orchestrator) Fail(ctx context.Context, err error) error {
	fields := map[string]interface{}{
		logger.FieldError: err.Error(),
		"fail_fast":       o.failFast,
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		fields["code"] = string(appErr.Code)
		if len(appErr.Details) > 0 {
			fields["details"] = appErr.Details
		}
		if appErr.Cause != nil {
			fields["cause"] = appErr.Cause.Error()
		}
	}
	if o.failFast {
		o.log.FatalNoExit("Application initialization failed", fields)
		o.exit(1)
		return err
	}
	o.log.Error("Application initialization failed", fields)

	if stopErr := o.registry.StopAll(context.WithoutCancel(ctx)); stopErr != nil {
		o.log.Warn("Cleanup after failed initialization reported errors", logger.ErrorFields("stop", stopErr))
	}
	return err
}

func connectError(err error) *apperrors.AppError {
	name := "unknown component"
	var se *component.StartError
	if errors.As(err, &se) {
		name = se.Component
		err = se.Err
	}
	return apperrors.ConnectFailed(name, err)
}
