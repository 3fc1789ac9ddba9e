package vmd

import (
	"sort"
)

type RankOptions struct {
	Sort      SortOption
	Filter    FilterOption
	Reference *GeoCoord
	// 0 disables the radius filter
	MaxDistanceMeters float64
}

// EffectiveSortOption applies the fallbacks of the list screen: without
// reference coordinates only fastest makes sense, and there are no booster
// slots for kids.
func EffectiveSortOption(option SortOption, filter FilterOption, hasReference bool) SortOption {
	if !hasReference || !option.Valid() {
		return SortFastest
	}
	if option == SortThirdDose && filter == FilterKidsFirstDoses {
		return SortFastest
	}
	return option
}

// FilterByDistance keeps centres within maxMeters of ref. Centres without
// coordinates are kept.
func FilterByDistance(centres []*Centre, ref GeoCoord, maxMeters float64) []*Centre {
	filtered := make([]*Centre, 0, len(centres))
	for _, centre := range centres {
		coord, ok := centre.Coordinates()
		if ok && DistanceMeters(ref, coord) > maxMeters {
			continue
		}
		filtered = append(filtered, centre)
	}
	return filtered
}

func FilterCentres(centres []*Centre, option FilterOption, idx SlotIndex) []*Centre {
	if option == FilterAllDoses || !option.Valid() {
		return append([]*Centre(nil), centres...)
	}

	var keep func(*Centre) bool

	switch option {
	case FilterKidsFirstDoses:
		keep = func(c *Centre) bool {
			return idx.HasTag(c, SlotTagKidsFirstDose)
		}
	default:
		vaccineType, _ := option.VaccineType()
		keep = func(c *Centre) bool {
			return c.HasVaccineType(vaccineType)
		}
	}

	filtered := make([]*Centre, 0, len(centres))
	for _, centre := range centres {
		if keep(centre) {
			filtered = append(filtered, centre)
		}
	}
	return filtered
}

// SortCentres returns a sorted copy. Centres that cannot be compared under
// the option (no coordinates, no appointment) keep their relative order
// after all comparable ones.
func SortCentres(centres []*Centre, option SortOption, ref *GeoCoord, idx SlotIndex) []*Centre {
	if ref == nil {
		option = SortFastest
	}

	switch option {
	case SortClosest:
		return sortByDistance(centres, *ref)
	case SortThirdDose:
		boosters := make([]*Centre, 0, len(centres))
		for _, centre := range centres {
			if idx.HasTag(centre, SlotTagThirdDose) {
				boosters = append(boosters, centre)
			}
		}
		return sortByNextAppointment(boosters)
	default:
		return sortByNextAppointment(centres)
	}
}

type keyedCentre struct {
	centre *Centre
	key    float64
}

// stable sort of the keyed centres, unkeyed ones appended in input order
func sortKeyed(keyed []keyedCentre, unkeyed []*Centre) []*Centre {
	sort.SliceStable(keyed, func(i, j int) bool {
		return keyed[i].key < keyed[j].key
	})

	sorted := make([]*Centre, 0, len(keyed)+len(unkeyed))
	for _, k := range keyed {
		sorted = append(sorted, k.centre)
	}
	return append(sorted, unkeyed...)
}

func sortByDistance(centres []*Centre, ref GeoCoord) []*Centre {
	keyed := make([]keyedCentre, 0, len(centres))
	unkeyed := make([]*Centre, 0)

	for _, centre := range centres {
		if coord, ok := centre.Coordinates(); ok {
			keyed = append(keyed, keyedCentre{centre: centre, key: DistanceMeters(ref, coord)})
		} else {
			unkeyed = append(unkeyed, centre)
		}
	}

	return sortKeyed(keyed, unkeyed)
}

func sortByNextAppointment(centres []*Centre) []*Centre {
	keyed := make([]keyedCentre, 0, len(centres))
	unkeyed := make([]*Centre, 0)

	for _, centre := range centres {
		if t, ok := centre.NextAppointmentTime(); ok {
			keyed = append(keyed, keyedCentre{centre: centre, key: float64(t.Unix())})
		} else {
			unkeyed = append(unkeyed, centre)
		}
	}

	return sortKeyed(keyed, unkeyed)
}

// Rank applies, in order: radius filter, dose/vaccine filter, sort.
func Rank(centres []*Centre, idx SlotIndex, opts RankOptions) []*Centre {
	ranked := centres

	if opts.Reference != nil && opts.MaxDistanceMeters > 0 {
		ranked = FilterByDistance(ranked, *opts.Reference, opts.MaxDistanceMeters)
	}

	ranked = FilterCentres(ranked, opts.Filter, idx)

	option := EffectiveSortOption(opts.Sort, opts.Filter, opts.Reference != nil)
	ranked = SortCentres(ranked, option, opts.Reference, idx)

	Log.Debugf("Ranked %d/%d centres (sort: %s, filter: %s)", len(ranked), len(centres), option, opts.Filter)

	return ranked
}
