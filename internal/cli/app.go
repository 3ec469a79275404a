package cli

import (
	"context"
	"fmt"

	"price-monitor/internal/export"
	"price-monitor/internal/monitor"
	"price-monitor/internal/notify"
	"price-monitor/internal/provider"
	"price-monitor/internal/stream"
)

// stack is the running core shared by run and serve.
type stack struct {
	hub      *stream.Hub
	svc      *monitor.Service
	notifier *notify.MultiNotifier
	sched    *export.Scheduler
}

// startStack builds the provider, hub, service, notifier and export
// scheduler from the loaded configuration and starts them.
func (app *App) startStack(ctx context.Context, bufferSize int) (*stack, error) {
	p, err := provider.New(app.Config.ProviderOptions())
	if err != nil {
		return nil, err
	}

	hub := stream.NewHubWithConfig(stream.HubConfig{SubscriberBufferSize: bufferSize})
	hub.Start(ctx)

	svcCfg := app.Config.ServiceConfig()
	svc := monitor.New(svcCfg, p, hub, app.Logger)

	notifier := notify.NewMultiNotifier(app.Config.Notifications, app.Logger)
	if len(notifier.Channels()) > 0 {
		hub.RegisterConsumer(notifier)
		app.Logger.Info().Strs("channels", notifier.Channels()).Msg("Notifications enabled")
	}

	st := &stack{hub: hub, svc: svc, notifier: notifier}

	if schedule := app.Config.Export.Schedule; schedule != "" {
		format, err := export.ParseFormat(app.Config.Export.Format)
		if err != nil {
			hub.Stop()
			return nil, err
		}
		st.sched = export.NewScheduler(app.Logger)
		job := &export.Job{
			Dir:      app.Config.Export.Dir,
			Format:   format,
			Location: svcCfg.Location,
			Source:   svc.History,
		}
		if err := st.sched.Add(schedule, job); err != nil {
			hub.Stop()
			return nil, fmt.Errorf("export schedule %q: %w", schedule, err)
		}
		st.sched.Start()
	}

	svc.Start(ctx)
	return st, nil
}

// stop shuts the stack down in reverse order.
func (st *stack) stop() {
	if st.sched != nil {
		st.sched.Stop()
	}
	st.svc.Stop()
	st.svc.Wait()
	st.hub.Stop()
}
