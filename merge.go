package vmd

// SlotIndex maps a centre ID to its dated slots, in the date order of the API.
type SlotIndex map[string][]DatedSlot

// MergeSlots joins centres with the daily slot records of their department.
//
// A centre whose department has no record, or which has no breakdown for a
// given date, simply gets no entry: missing data is not distinguished from
// zero slots.
func MergeSlots(centres []*Centre, daily []DailySlots) SlotIndex {
	byDepartment := make(map[string]*DailySlots, len(daily))
	for i := range daily {
		if _, exists := byDepartment[daily[i].Department]; !exists {
			byDepartment[daily[i].Department] = &daily[i]
		}
	}

	index := make(SlotIndex)

	for _, centre := range centres {
		if centre == nil || len(centre.InternalId) == 0 {
			continue
		}

		record, ok := byDepartment[centre.Department]
		if !ok {
			continue
		}

		for _, day := range record.Days {
			slots, found := day.ForLocation(centre.InternalId)
			if !found {
				continue
			}
			index[centre.ID()] = append(index[centre.ID()], DatedSlot{Date: day.Date, Slots: slots})
		}
	}

	Log.Debugf("Merged daily slots for %d/%d centres", len(index), len(centres))

	return index
}

func (idx SlotIndex) Slots(centre *Centre) []DatedSlot {
	if centre == nil {
		return nil
	}
	return idx[centre.ID()]
}

// SlotsOn returns the slot detail of centre on date.
func (idx SlotIndex) SlotsOn(centre *Centre, date string) (LocationSlots, bool) {
	for _, dated := range idx.Slots(centre) {
		if dated.Date == date {
			return dated.Slots, true
		}
	}
	return LocationSlots{}, false
}

// TagCount sums tag over every date merged for centre.
func (idx SlotIndex) TagCount(centre *Centre, tag SlotTag) int {
	total := 0
	for _, dated := range idx.Slots(centre) {
		total += dated.Slots.Count(tag)
	}
	return total
}

func (idx SlotIndex) HasTag(centre *Centre, tag SlotTag) bool {
	for _, dated := range idx.Slots(centre) {
		if dated.Slots.Count(tag) > 0 {
			return true
		}
	}
	return false
}

func BoosterShotsCount(idx SlotIndex, centre *Centre, date string) int {
	slots, ok := idx.SlotsOn(centre, date)
	if !ok {
		return 0
	}
	return slots.Count(SlotTagThirdDose)
}

func KidsFirstDoseCount(idx SlotIndex, centre *Centre, date string) int {
	slots, ok := idx.SlotsOn(centre, date)
	if !ok {
		return 0
	}
	return slots.Count(SlotTagKidsFirstDose)
}

// TotalSlotsFromDaily sums the department-level totals.
func TotalSlotsFromDaily(daily []DailySlots) int {
	total := 0
	for _, record := range daily {
		for _, day := range record.Days {
			total += day.Total
		}
	}
	return total
}

// TotalSlotsFromIndex sums the "all" tag over the merged slots of centres.
// It can differ from TotalSlotsFromDaily: unmatched locations are not counted.
func TotalSlotsFromIndex(idx SlotIndex, centres []*Centre) int {
	total := 0
	for _, centre := range centres {
		total += idx.TagCount(centre, SlotTagAll)
	}
	return total
}

func AvailableCentresCount(centres []*Centre) int {
	count := 0
	for _, centre := range centres {
		if centre.IsAvailable() {
			count++
		}
	}
	return count
}

type Summary struct {
	TotalAppointments      int    `json:"total_appointments"`
	DepartmentAppointments int    `json:"department_appointments"`
	AvailableCentres       int    `json:"available_centres"`
	Centres                int    `json:"centres"`
	LastUpdated            string `json:"last_updated,omitempty"`
}

// Summarize counts over the ranked list; DepartmentAppointments covers every
// fetched department regardless of filters.
func Summarize(ranked []*Centre, idx SlotIndex, daily []DailySlots, lastUpdated string) Summary {
	return Summary{
		TotalAppointments:      TotalSlotsFromIndex(idx, ranked),
		DepartmentAppointments: TotalSlotsFromDaily(daily),
		AvailableCentres:       AvailableCentresCount(ranked),
		Centres:                len(ranked),
		LastUpdated:            lastUpdated,
	}
}
