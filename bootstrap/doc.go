// Package bootstrap wires marathon's API process together.
//
// NewApp loads nothing by itself: it takes a validated Config, registers the
// connect sequence (redis, postgresql, kafka-client, kafka-producer) and the
// handlers. Start then runs, in order:
//
//  1. the connect sequence, one component at a time, each bounded by
//     app.connect_timeout
//  2. OnStart hooks
//  3. route binding through router.Bind
//  4. the HTTP listener
//
// Any failure goes through the Orchestrator: with fail-fast the process exits
// with status 1, otherwise started components are stopped and the error is
// returned.
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithFailFast(true))
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
package bootstrap
