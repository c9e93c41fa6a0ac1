// Package app wires the workflow engine together with its HTTP
// surface. All components are constructed explicitly at startup and
// handed to each other as dependencies: the agent registry, the
// executor, the error intelligence tracker, the websocket hub, and
// the handlers.
//
// The typical entry point:
//
//	application, err := app.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until the context is cancelled or the process receives
// SIGINT/SIGTERM, then shuts the server, the hub, the executor, and
// the telemetry providers down in order.
package app
