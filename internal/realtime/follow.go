package realtime

import "context"

// ChangeNotifier reports viewport changes
type ChangeNotifier interface {
	OnChange(fn func())
}

// CountdownResetter is a timed poller whose next tick can be made to poll
type CountdownResetter interface {
	ResetCountdown()
}

// Updater is a poller refreshed on demand
type Updater interface {
	Update(ctx context.Context)
}

// FollowViewport keeps the pollers in step with the map. On every viewport
// change the timed poller polls on its next tick and each on-demand poller
// starts a refresh bound to ctx.
func FollowViewport(ctx context.Context, view ChangeNotifier, timed CountdownResetter, onDemand ...Updater) {
	view.OnChange(func() {
		timed.ResetCountdown()
		for _, u := range onDemand {
			go u.Update(ctx)
		}
	})
}
