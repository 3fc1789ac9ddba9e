package vmd

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

// test centre; empty next means unavailable
func testCentre(id string, department string, next string) *Centre {
	centre := &Centre{
		InternalId: id,
		Department: department,
		Name:       "Centre " + id,
	}
	if len(next) > 0 {
		centre.NextAppointment = strPtr(next)
	}
	return centre
}

func withCoord(centre *Centre, lat float64, lng float64) *Centre {
	centre.Location = &CentreLocation{Latitude: floatPtr(lat), Longitude: floatPtr(lng)}
	return centre
}

func centreIds(centres []*Centre) []string {
	ids := make([]string, 0, len(centres))
	for _, centre := range centres {
		ids = append(ids, centre.ID())
	}
	return ids
}

func equalStrings(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
