package entity

// SlotName links a catalog slot to its pricing schedule.
type SlotName string

const (
	SlotNameLunch     SlotName = "Lunch"
	SlotNameReception SlotName = "Reception"
	SlotNameNight     SlotName = "Night"
)

// SlotDefinition is one bookable time window of the venue's day. BasePrice is
// only the fallback used when no pricing schedule exists for Name.
type SlotDefinition struct {
	SlotID    int64    `json:"slot_id" db:"slot_id"`
	Name      SlotName `json:"name" db:"name"`
	Label     string   `json:"label" db:"label"`
	TimeRange string   `json:"time_range" db:"time_range"`
	BasePrice Money    `json:"base_price" db:"base_price"`
}
