package vmd

import (
	"encoding/json"
	"reflect"
	"testing"
)

const dailySlotsSample = `{
	"departement": "75",
	"creneaux_quotidiens": [
		{
			"date": "2021-12-01",
			"total": 40,
			"creneaux_par_lieu": [
				{"lieu": "a", "creneaux_par_tag": [{"tag": "all", "creneaux": 10}, {"tag": "third_dose", "creneaux": 2}]},
				{"lieu": "unknown", "creneaux_par_tag": [{"tag": "all", "creneaux": 30}]}
			]
		},
		{
			"date": "2021-12-02",
			"total": 8,
			"creneaux_par_lieu": [
				{"lieu": "a", "creneaux_par_tag": [{"tag": "all", "creneaux": 5}, {"tag": "third_dose", "creneaux": 5}]},
				{"lieu": "b", "creneaux_par_tag": [{"tag": "all", "creneaux": 3}, {"tag": "kids_first_dose", "creneaux": 3}]}
			]
		}
	]
}`

func loadDailySample(t *testing.T) DailySlots {
	daily := DailySlots{}
	if err := json.Unmarshal([]byte(dailySlotsSample), &daily); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	return daily
}

func TestMergeSlots(t *testing.T) {
	daily := loadDailySample(t)

	a := testCentre("a", "75", "2021-12-01T10:00:00+01:00")
	b := testCentre("b", "75", "2021-12-02T10:00:00+01:00")
	c := testCentre("c", "75", "")
	other := testCentre("a2", "92", "")
	noId := &Centre{Gid: "gid-only", Department: "75"}

	idx := MergeSlots([]*Centre{a, b, c, other, noId}, []DailySlots{daily})

	if len(idx.Slots(a)) != 2 {
		t.Errorf("Expected 2 dated slots for a, got %d", len(idx.Slots(a)))
		return
	}
	if idx.Slots(a)[0].Date != "2021-12-01" || idx.Slots(a)[1].Date != "2021-12-02" {
		t.Errorf("Expected API date order, got %v", idx.Slots(a))
		return
	}
	if len(idx.Slots(b)) != 1 {
		t.Errorf("Expected 1 dated slot for b, got %d", len(idx.Slots(b)))
		return
	}
	if _, ok := idx[c.ID()]; ok {
		t.Errorf("Expected no entry for a centre without slots")
		return
	}
	if _, ok := idx[other.ID()]; ok {
		t.Errorf("Expected no entry for a department without record")
		return
	}
	if _, ok := idx[noId.ID()]; ok {
		t.Errorf("Expected no entry for a centre without internal id")
		return
	}

	if idx.TagCount(a, SlotTagAll) != 15 {
		t.Errorf("Expected 15 slots for a, got %d", idx.TagCount(a, SlotTagAll))
		return
	}
	if !idx.HasTag(b, SlotTagKidsFirstDose) || idx.HasTag(a, SlotTagKidsFirstDose) {
		t.Errorf("Expected only b to have kids slots")
		return
	}
}

func TestMergeSlotsIdempotent(t *testing.T) {
	daily := loadDailySample(t)
	centres := []*Centre{testCentre("a", "75", ""), testCentre("b", "75", "")}

	first := MergeSlots(centres, []DailySlots{daily})
	second := MergeSlots(centres, []DailySlots{daily})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical indexes, got %v and %v", first, second)
		return
	}
}

func TestMergeSlotsFirstRecordWins(t *testing.T) {
	daily := loadDailySample(t)
	empty := DailySlots{Department: "75"}
	centre := testCentre("a", "75", "")

	idx := MergeSlots([]*Centre{centre}, []DailySlots{empty, daily})
	if len(idx.Slots(centre)) != 0 {
		t.Errorf("Expected the first record of 75 to be used, got %v", idx.Slots(centre))
		return
	}
}

func TestBoosterShotsCount(t *testing.T) {
	daily := loadDailySample(t)
	a := testCentre("a", "75", "")
	idx := MergeSlots([]*Centre{a}, []DailySlots{daily})

	if count := BoosterShotsCount(idx, a, "2021-12-02"); count != 5 {
		t.Errorf("Expected 5 booster shots, got %d", count)
		return
	}
	if count := BoosterShotsCount(idx, a, "2021-12-03"); count != 0 {
		t.Errorf("Expected 0 booster shots on a date without data, got %d", count)
		return
	}
	if count := KidsFirstDoseCount(idx, a, "2021-12-02"); count != 0 {
		t.Errorf("Expected 0 kids slots, got %d", count)
		return
	}
}

func TestTotals(t *testing.T) {
	daily := loadDailySample(t)
	a := testCentre("a", "75", "2021-12-01T10:00:00+01:00")
	b := testCentre("b", "75", "")
	centres := []*Centre{a, b}
	idx := MergeSlots(centres, []DailySlots{daily})

	if total := TotalSlotsFromDaily([]DailySlots{daily}); total != 48 {
		t.Errorf("Expected 48 slots from daily totals, got %d", total)
		return
	}
	// "unknown" location is not a centre
	if total := TotalSlotsFromIndex(idx, centres); total != 18 {
		t.Errorf("Expected 18 slots from index, got %d", total)
		return
	}

	summary := Summarize(centres, idx, []DailySlots{daily}, "2021-12-01")
	if summary.AvailableCentres != 1 || summary.Centres != 2 {
		t.Errorf("Expected 1/2 available centres, got %d/%d", summary.AvailableCentres, summary.Centres)
		return
	}
	if summary.TotalAppointments != 18 || summary.DepartmentAppointments != 48 {
		t.Errorf("Expected 18 and 48 appointments, got %d and %d", summary.TotalAppointments, summary.DepartmentAppointments)
		return
	}
}
