package vmd

import (
	"context"
	"sort"
	"time"
)

// Watcher polls the departments of followed centres and notifies when one
// of them gets appointments again.
type Watcher struct {
	Client   *Client
	Prefs    *Preferences
	Tracker  *AvailabilityTracker
	Notifier Notifier
}

func NewWatcher(client *Client, prefs *Preferences, notifier Notifier) *Watcher {
	return &Watcher{
		Client:   client,
		Prefs:    prefs,
		Tracker:  NewAvailabilityTracker(),
		Notifier: notifier,
	}
}

// Poll runs one pass and returns the number of notifications sent.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	followed, err := w.Prefs.AllFollowedCentres(ctx)
	if err != nil {
		return 0, err
	}

	followedIds := make(map[string]bool)
	for _, centres := range followed {
		for _, fc := range centres {
			followedIds[fc.Id] = true
		}
	}
	for _, id := range w.Tracker.Tracked() {
		if !followedIds[id] {
			w.Tracker.Forget(id)
		}
	}

	if len(followed) == 0 {
		Log.Debugf("No followed centre, nothing to poll")
		return 0, nil
	}

	departments := make([]string, 0, len(followed))
	for department := range followed {
		departments = append(departments, department)
	}
	sort.Strings(departments)

	data, err := w.Client.FetchDepartments(ctx, departments)
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]FollowedCentre)
	for department, centres := range followed {
		for _, fc := range centres {
			wanted[department+"|"+fc.Id] = fc
		}
	}

	sent := 0
	for _, centre := range data.Centres {
		fc, ok := wanted[centre.Department+"|"+centre.ID()]
		if !ok {
			continue
		}

		changed, becameAvailable := w.Tracker.Update(centre)
		if changed {
			Log.Infof("%s: available=%t", centre, centre.IsAvailable())
		}

		if becameAvailable && fc.NotificationsType == NotificationsAll {
			if err := notifyAvailable(w.Notifier, centre); err != nil {
				Log.Errorf("%s: %v", centre, err)
				continue
			}
			sent++
		}
	}

	return sent, nil
}

// Run polls every interval until ctx is done. Poll errors are logged and
// the next pass starts from scratch.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	Log.Infof("Watching followed centres every %s...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			Log.Errorf("Watch pass failed: %v", err)
			if w.Client.Fetcher.Cache != nil {
				w.Client.Fetcher.Cache.Destroy() //no fetch in flight between passes
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
