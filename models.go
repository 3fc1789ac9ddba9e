package vmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CentreType string

const (
	CentreTypeVaccinationCenter   CentreType = "vaccination-center"
	CentreTypeDrugstore           CentreType = "drugstore"
	CentreTypeGeneralPractitioner CentreType = "general-practitioner"
	CentreTypeMedecin             CentreType = "medecin"
)

func (t CentreType) Known() bool {
	switch t {
	case CentreTypeVaccinationCenter, CentreTypeDrugstore, CentreTypeGeneralPractitioner, CentreTypeMedecin:
		return true
	}
	return false
}

type CentreLocation struct {
	Longitude  *float64 `json:"longitude"`
	Latitude   *float64 `json:"latitude"`
	City       string   `json:"city"`
	PostalCode string   `json:"cp"`
}

type CentreMetadata struct {
	Address       string            `json:"address"`
	PhoneNumber   string            `json:"phone_number"`
	BusinessHours map[string]string `json:"business_hours"`
}

// Centre is a vaccination location as listed by the centres endpoint.
//
// Identity is best effort: InternalId, then Gid, then a UUID generated when
// the centre is decoded. A centre carrying neither natural key never
// compares equal to the same centre from another fetch.
type Centre struct {
	Department             string          `json:"departement"`
	Name                   string          `json:"nom"`
	Url                    string          `json:"url"`
	Location               *CentreLocation `json:"location"`
	Metadata               *CentreMetadata `json:"metadata"`
	NextAppointment        *string         `json:"prochain_rdv"`
	Platform               string          `json:"plateforme"`
	Type                   CentreType      `json:"type"`
	AppointmentCount       int             `json:"appointment_count"`
	InternalId             string          `json:"internal_id"`
	Gid                    string          `json:"gid"`
	VaccineTypes           []string        `json:"vaccine_type"`
	AppointmentByPhoneOnly bool            `json:"appointment_by_phone_only"`

	generatedId string
}

func (c *Centre) UnmarshalJSON(data []byte) error {
	type plain Centre
	decoded := plain{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*c = Centre(decoded)
	if len(c.InternalId) == 0 && len(c.Gid) == 0 {
		c.generatedId = uuid.NewString()
	}

	return nil
}

func (c *Centre) ID() string {
	if len(c.InternalId) > 0 {
		return c.InternalId
	}
	if len(c.Gid) > 0 {
		return c.Gid
	}
	if len(c.generatedId) == 0 {
		c.generatedId = uuid.NewString()
	}
	return c.generatedId
}

func (c *Centre) IsAvailable() bool {
	return c.NextAppointment != nil && len(*c.NextAppointment) > 0
}

// Coordinates returns false on any missing link: no location, no latitude or no longitude.
func (c *Centre) Coordinates() (GeoCoord, bool) {
	if c == nil || c.Location == nil || c.Location.Latitude == nil || c.Location.Longitude == nil {
		return GeoCoord{}, false
	}
	return GeoCoord{Lat: *c.Location.Latitude, Lng: *c.Location.Longitude}, true
}

func (c *Centre) NextAppointmentTime() (time.Time, bool) {
	if !c.IsAvailable() {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(*c.NextAppointment)
	if err != nil {
		Log.Debugf("%s: %v", c.ID(), err)
		return time.Time{}, false
	}
	return t, true
}

func (c *Centre) HasVaccineType(vaccineType string) bool {
	for _, v := range c.VaccineTypes {
		if v == vaccineType {
			return true
		}
	}
	return false
}

func (c *Centre) String() string {
	return fmt.Sprintf("%s (%s, %s)", c.Name, c.Department, c.ID())
}

type CentresResponse struct {
	LastUpdated        string    `json:"last_updated"`
	AvailableCentres   []*Centre `json:"centres_disponibles"`
	UnavailableCentres []*Centre `json:"centres_indisponibles"`
}

// AllCentres returns available then unavailable centres, deduplicated by ID.
func (r *CentresResponse) AllCentres() []*Centre {
	return DedupeCentres(r.AvailableCentres, r.UnavailableCentres)
}

// DedupeCentres concatenates lists keeping the first centre seen for each ID.
func DedupeCentres(lists ...[]*Centre) []*Centre {
	seen := make(map[string]bool)
	centres := make([]*Centre, 0)

	for _, list := range lists {
		for _, centre := range list {
			if centre == nil || seen[centre.ID()] {
				continue
			}
			seen[centre.ID()] = true
			centres = append(centres, centre)
		}
	}

	return centres
}

type SlotTag string

// The daily slots endpoint shipped in two shapes; this is the one carrying
// unknown_dose and kids_first_dose, which the kids filter needs.
const (
	SlotTagAll               SlotTag = "all"
	SlotTagFirstOrSecondDose SlotTag = "first_or_second_dose"
	SlotTagThirdDose         SlotTag = "third_dose"
	SlotTagUnknownDose       SlotTag = "unknown_dose"
	SlotTagKidsFirstDose     SlotTag = "kids_first_dose"
)

type TagSlots struct {
	Tag   SlotTag `json:"tag"`
	Slots int     `json:"creneaux"`
}

type LocationSlots struct {
	Location string     `json:"lieu"`
	Tags     []TagSlots `json:"creneaux_par_tag"`
}

// Count returns the slot count for tag, 0 when the tag is absent.
func (l LocationSlots) Count(tag SlotTag) int {
	for _, t := range l.Tags {
		if t.Tag == tag {
			return t.Slots
		}
	}
	return 0
}

type DailySlot struct {
	Date      string          `json:"date"`
	Total     int             `json:"total"`
	Locations []LocationSlots `json:"creneaux_par_lieu"`
}

func (d DailySlot) ForLocation(location string) (LocationSlots, bool) {
	for _, l := range d.Locations {
		if l.Location == location {
			return l, true
		}
	}
	return LocationSlots{}, false
}

type DailySlots struct {
	Department string      `json:"departement"`
	Days       []DailySlot `json:"creneaux_quotidiens"`
}

type DatedSlot struct {
	Date  string        `json:"date"`
	Slots LocationSlots `json:"slots"`
}

const StatsAllDepartments = "tout_departement"

type StatsValue struct {
	Available int `json:"disponibles"`
	Total     int `json:"total"`
	Slots     int `json:"creneaux"`
}

// Percentage of centres with availability; false when there are no centres.
func (s StatsValue) Percentage() (float64, bool) {
	if s.Total == 0 {
		return 0, false
	}
	return float64(s.Available) * 100 / float64(s.Total), true
}

type Stats map[string]StatsValue

func (s Stats) Department(code string) (StatsValue, bool) {
	v, ok := s[code]
	return v, ok
}

func (s Stats) National() (StatsValue, bool) {
	return s.Department(StatsAllDepartments)
}
