package vmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrDecode = errors.New("decode error")
var ErrNoData = errors.New("no data")

// Client reads the public Vite Ma Dose data files.
type Client struct {
	Config  *Config
	Fetcher *Fetcher
}

func NewClient(config *Config) *Client {
	fetcher := NewFetcher(config.Timeout(), config.RequestsPerSecond)
	fetcher.CacheTTL = time.Duration(config.CacheTTL) * time.Second

	return &Client{
		Config:  config,
		Fetcher: fetcher,
	}
}

// decodes body into v; structural detail only goes to the debug log
func decodeJSON(url string, body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty response from %s", ErrNoData, url)
	}

	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		if errors.As(err, &typeErr) {
			Log.Debugf("%s: field %q: expected %s, got %s (offset %d)", url, typeErr.Field, typeErr.Type, typeErr.Value, typeErr.Offset)
		} else if errors.As(err, &syntaxErr) {
			Log.Debugf("%s: syntax error at offset %d: %v", url, syntaxErr.Offset, syntaxErr)
		} else {
			Log.Debugf("%s: %v", url, err)
		}
		return fmt.Errorf("%w: %s", ErrDecode, url)
	}

	return nil
}

func (c *Client) FetchCentres(ctx context.Context, department string) (*CentresResponse, error) {
	url := c.Config.CentresUrl(department)

	body, _, err := c.Fetcher.FetchCached(ctx, url)
	if err != nil {
		return nil, err
	}

	resp := new(CentresResponse)
	if err := decodeJSON(url, body, resp); err != nil {
		return nil, err
	}

	if resp.AvailableCentres == nil && resp.UnavailableCentres == nil {
		return nil, fmt.Errorf("%w: no centres listed in %s", ErrNoData, url)
	}

	for _, centre := range resp.AllCentres() {
		if len(centre.Department) == 0 {
			centre.Department = department
		}
	}

	Log.Debugf("Department %s: %d available, %d unavailable centres", department, len(resp.AvailableCentres), len(resp.UnavailableCentres))

	return resp, nil
}

func (c *Client) FetchDailySlots(ctx context.Context, department string) (*DailySlots, error) {
	url := c.Config.DailySlotsUrl(department)

	body, _, err := c.Fetcher.FetchCached(ctx, url)
	if err != nil {
		return nil, err
	}

	slots := new(DailySlots)
	if err := decodeJSON(url, body, slots); err != nil {
		return nil, err
	}

	if len(slots.Department) == 0 {
		slots.Department = department
	}

	return slots, nil
}

func (c *Client) FetchStats(ctx context.Context) (Stats, error) {
	url := c.Config.StatsUrl()

	body, _, err := c.Fetcher.FetchCached(ctx, url)
	if err != nil {
		return nil, err
	}

	stats := make(Stats)
	if err := decodeJSON(url, body, &stats); err != nil {
		return nil, err
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: empty stats in %s", ErrNoData, url)
	}

	return stats, nil
}

// DepartmentsData is the joined result of the per-department fetches.
type DepartmentsData struct {
	Departments []string
	Centres     []*Centre
	DailySlots  []DailySlots
	LastUpdated string
}

// FetchDepartments fetches centres and daily slots of every department
// concurrently. It returns one combined result, or the first error; the
// other requests are cancelled and their errors dropped.
func (c *Client) FetchDepartments(ctx context.Context, departments []string) (*DepartmentsData, error) {
	if len(departments) == 0 {
		return nil, fmt.Errorf("%w: no department to fetch", ErrNoData)
	}

	centres := make([]*CentresResponse, len(departments))
	daily := make([]*DailySlots, len(departments))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, department := range departments {
		i, department := i, department

		group.Go(func() error {
			resp, err := c.FetchCentres(groupCtx, department)
			if err != nil {
				return err
			}
			centres[i] = resp
			return nil
		})

		group.Go(func() error {
			slots, err := c.FetchDailySlots(groupCtx, department)
			if err != nil {
				return err
			}
			daily[i] = slots
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		Log.Errorf("Fetching departments %v: %v", departments, err)
		return nil, err
	}

	data := &DepartmentsData{
		Departments: append([]string(nil), departments...),
		DailySlots:  make([]DailySlots, 0, len(departments)),
	}

	lists := make([][]*Centre, 0, len(departments)*2)
	for i := range departments {
		lists = append(lists, centres[i].AvailableCentres, centres[i].UnavailableCentres)
		data.DailySlots = append(data.DailySlots, *daily[i])

		if centres[i].LastUpdated > data.LastUpdated {
			data.LastUpdated = centres[i].LastUpdated
		}
	}
	data.Centres = DedupeCentres(lists...)

	return data, nil
}
