// Package manager wires the baseline manager together: one registry holding
// the configuration and UI preference stores, their persistence bindings, the
// editor service, and optional background plugins.
//
// # Usage
//
//	m, err := manager.New(ctx, storage,
//	    manager.WithLogger(logger),
//	    slotwatcher.WithSlotWatcher(slotwatcher.DefaultConfig()),
//	)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	if err := m.Editor().SetOption(ctx, "output_format", "json"); err != nil {
//	    return err
//	}
//
// Plugins run between Start and Stop. They are initialized in registration
// order and shut down in reverse order.
//
// # Plugin states
//
//	stopped -> starting -> running -> stopping -> stopped
//
// A plugin that fails to initialize, or a shutdown that outlasts the
// shutdown timeout, leaves the manager crashed; Start may be called again
// from there. WithStateHandler observes every transition.
package manager
