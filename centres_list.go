package vmd

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadyLoading = errors.New("centres list is already loading")

// CentresList owns the state of one search screen: the fetched data, the
// merged slots and the ranked list. All mutations go through its mutex.
type CentresList struct {
	Client *Client
	Search LocationSearchResult

	mutex   sync.Mutex
	loading bool
	sort    SortOption
	filter  FilterOption
	data    *DepartmentsData
	index   SlotIndex
	ranked  []*Centre
	summary Summary
}

type CentresListSnapshot struct {
	Search  LocationSearchResult `json:"search"`
	Sort    SortOption           `json:"sort"`
	Filter  FilterOption         `json:"filter"`
	Centres []*Centre            `json:"centres"`
	Slots   SlotIndex            `json:"slots"`
	Summary Summary              `json:"summary"`
	// sort choices only make sense around a place
	SortSelectable      bool `json:"sort_selectable"`
	ThirdDoseSelectable bool `json:"third_dose_selectable"`
}

func NewCentresList(client *Client, search LocationSearchResult, sort SortOption, filter FilterOption) *CentresList {
	return &CentresList{
		Client: client,
		Search: search,
		sort:   sort,
		filter: filter,
	}
}

// Reload runs fetch, merge and rank. A call made while another is in flight
// returns ErrAlreadyLoading; the running one is not cancelled. On failure the
// previous list is kept and the first fetch error is returned as is.
func (l *CentresList) Reload(ctx context.Context) error {
	l.mutex.Lock()
	if l.loading {
		l.mutex.Unlock()
		return ErrAlreadyLoading
	}
	l.loading = true
	l.mutex.Unlock()

	defer func() {
		l.mutex.Lock()
		l.loading = false
		l.mutex.Unlock()
	}()

	data, err := l.Client.FetchDepartments(ctx, l.Search.DepartmentCodes())
	if err != nil {
		return err
	}

	index := MergeSlots(data.Centres, data.DailySlots)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.data = data
	l.index = index
	l.rerank()

	return nil
}

func (l *CentresList) IsLoading() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.loading
}

// must hold mutex
func (l *CentresList) rerank() {
	if l.data == nil {
		return
	}

	opts := RankOptions{
		Sort:      l.sort,
		Filter:    l.filter,
		Reference: l.Search.Coordinates,
	}
	if l.Client.Config != nil {
		opts.MaxDistanceMeters = l.Client.Config.MaxDistanceMeters()
	}

	l.ranked = Rank(l.data.Centres, l.index, opts)
	l.summary = Summarize(l.ranked, l.index, l.data.DailySlots, l.data.LastUpdated)
}

func (l *CentresList) SetSort(option SortOption) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.sort = option
	l.rerank()
}

func (l *CentresList) SetFilter(option FilterOption) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.filter = option
	l.rerank()
}

func (l *CentresList) Snapshot() CentresListSnapshot {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	hasReference := l.Search.Coordinates != nil

	snapshot := CentresListSnapshot{
		Search:              l.Search,
		Sort:                EffectiveSortOption(l.sort, l.filter, hasReference),
		Filter:              l.filter,
		Centres:             append([]*Centre(nil), l.ranked...),
		Slots:               make(SlotIndex, len(l.ranked)),
		Summary:             l.summary,
		SortSelectable:      hasReference,
		ThirdDoseSelectable: hasReference && l.filter != FilterKidsFirstDoses,
	}
	for _, centre := range l.ranked {
		if slots, ok := l.index[centre.ID()]; ok {
			snapshot.Slots[centre.ID()] = slots
		}
	}

	return snapshot
}

// HomeStats is what the home screen shows before any search.
type HomeStats struct {
	National    StatsValue `json:"national"`
	Percentage  *float64   `json:"percentage,omitempty"`
	Departments Stats      `json:"departments"`
}

func (c *Client) LoadHome(ctx context.Context) (*HomeStats, error) {
	stats, err := c.FetchStats(ctx)
	if err != nil {
		return nil, err
	}

	home := &HomeStats{Departments: make(Stats, len(stats))}
	for code, value := range stats {
		if code == StatsAllDepartments {
			continue
		}
		home.Departments[code] = value
	}

	if national, ok := stats.National(); ok {
		home.National = national
		if percentage, ok := national.Percentage(); ok {
			home.Percentage = &percentage
		}
	}

	return home, nil
}
