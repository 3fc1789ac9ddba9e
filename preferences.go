package vmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

const MaxLastSearchResults = 3

const (
	PrefKeyLastSearchResults = "last_search_results"
	PrefKeySortOption        = "centres_list_sort_option"
	PrefKeyFilterOption      = "centres_list_filter_option"
	PrefKeyFollowedCentres   = "followed_centres"
	PrefKeyOnboarding        = "has_seen_onboarding"
)

type NotificationsType string

// Only none and all: there is no chronodose slot model to back a third kind.
const (
	NotificationsNone NotificationsType = "none"
	NotificationsAll  NotificationsType = "all"
)

func ParseNotificationsType(s string) (NotificationsType, error) {
	switch NotificationsType(s) {
	case NotificationsNone, NotificationsAll:
		return NotificationsType(s), nil
	}
	return NotificationsNone, fmt.Errorf("unknown notifications type: %q", s)
}

type FollowedCentre struct {
	Id                string            `json:"id"`
	NotificationsType NotificationsType `json:"notifications_type"`
}

// Preferences is the narrow contract the rest of the code uses to reach the
// key-value store; values are JSON encoded.
type Preferences struct {
	Store KeyValueStore
}

func NewPreferences(store KeyValueStore) *Preferences {
	return &Preferences{Store: store}
}

func (p *Preferences) load(ctx context.Context, key string, v interface{}) (bool, error) {
	data, ok, err := p.Store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("preference %s: %w", key, err)
	}
	return true, nil
}

func (p *Preferences) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("preference %s: %w", key, err)
	}
	return p.Store.Set(ctx, key, data)
}

func (p *Preferences) LastSearchResults(ctx context.Context) ([]LocationSearchResult, error) {
	results := make([]LocationSearchResult, 0)
	if _, err := p.load(ctx, PrefKeyLastSearchResults, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// AddSearchResult puts result first, drops any older entry with the same
// formatted name and keeps at most MaxLastSearchResults entries.
func (p *Preferences) AddSearchResult(ctx context.Context, result LocationSearchResult) error {
	previous, err := p.LastSearchResults(ctx)
	if err != nil {
		return err
	}

	results := []LocationSearchResult{result}
	for _, r := range previous {
		if len(results) >= MaxLastSearchResults {
			break
		}
		if r.FormattedName() == result.FormattedName() {
			continue
		}
		results = append(results, r)
	}

	return p.save(ctx, PrefKeyLastSearchResults, results)
}

func (p *Preferences) SortOption(ctx context.Context) (SortOption, error) {
	var value int
	found, err := p.load(ctx, PrefKeySortOption, &value)
	if err != nil || !found || !SortOption(value).Valid() {
		return DefaultSortOption, err
	}
	return SortOption(value), nil
}

func (p *Preferences) SetSortOption(ctx context.Context, option SortOption) error {
	if !option.Valid() {
		return fmt.Errorf("invalid sort option: %d", int(option))
	}
	return p.save(ctx, PrefKeySortOption, int(option))
}

func (p *Preferences) FilterOption(ctx context.Context) (FilterOption, error) {
	var value int
	found, err := p.load(ctx, PrefKeyFilterOption, &value)
	if err != nil || !found || !FilterOption(value).Valid() {
		return DefaultFilterOption, err
	}
	return FilterOption(value), nil
}

func (p *Preferences) SetFilterOption(ctx context.Context, option FilterOption) error {
	if !option.Valid() {
		return fmt.Errorf("invalid filter option: %d", int(option))
	}
	return p.save(ctx, PrefKeyFilterOption, int(option))
}

// AllFollowedCentres returns department code -> followed centres.
func (p *Preferences) AllFollowedCentres(ctx context.Context) (map[string][]FollowedCentre, error) {
	followed := make(map[string][]FollowedCentre)
	if _, err := p.load(ctx, PrefKeyFollowedCentres, &followed); err != nil {
		return nil, err
	}
	// a stored null decodes to a nil map
	if followed == nil {
		followed = make(map[string][]FollowedCentre)
	}
	return followed, nil
}

func (p *Preferences) FollowedCentres(ctx context.Context, department string) ([]FollowedCentre, error) {
	followed, err := p.AllFollowedCentres(ctx)
	if err != nil {
		return nil, err
	}
	return followed[department], nil
}

func (p *Preferences) FollowedCentre(ctx context.Context, department string, id string) (FollowedCentre, bool, error) {
	centres, err := p.FollowedCentres(ctx, department)
	if err != nil {
		return FollowedCentre{}, false, err
	}
	for _, fc := range centres {
		if fc.Id == id {
			return fc, true, nil
		}
	}
	return FollowedCentre{}, false, nil
}

func (p *Preferences) IsFollowing(ctx context.Context, department string, id string) (bool, error) {
	_, found, err := p.FollowedCentre(ctx, department, id)
	return found, err
}

// FollowCentre adds fc to the department set, replacing an entry with the same id.
func (p *Preferences) FollowCentre(ctx context.Context, department string, fc FollowedCentre) error {
	followed, err := p.AllFollowedCentres(ctx)
	if err != nil {
		return err
	}

	centres := make([]FollowedCentre, 0, len(followed[department])+1)
	for _, existing := range followed[department] {
		if existing.Id != fc.Id {
			centres = append(centres, existing)
		}
	}
	centres = append(centres, fc)
	sort.Slice(centres, func(i, j int) bool {
		return centres[i].Id < centres[j].Id
	})
	followed[department] = centres

	return p.save(ctx, PrefKeyFollowedCentres, followed)
}

func (p *Preferences) UnfollowCentre(ctx context.Context, department string, id string) error {
	followed, err := p.AllFollowedCentres(ctx)
	if err != nil {
		return err
	}

	centres := make([]FollowedCentre, 0, len(followed[department]))
	for _, existing := range followed[department] {
		if existing.Id != id {
			centres = append(centres, existing)
		}
	}

	if len(centres) == 0 {
		delete(followed, department)
	} else {
		followed[department] = centres
	}

	if len(followed) == 0 {
		return p.Store.Delete(ctx, PrefKeyFollowedCentres)
	}
	return p.save(ctx, PrefKeyFollowedCentres, followed)
}

func (p *Preferences) HasSeenOnboarding(ctx context.Context) (bool, error) {
	var seen bool
	_, err := p.load(ctx, PrefKeyOnboarding, &seen)
	return seen, err
}

func (p *Preferences) SetHasSeenOnboarding(ctx context.Context, seen bool) error {
	return p.save(ctx, PrefKeyOnboarding, seen)
}
