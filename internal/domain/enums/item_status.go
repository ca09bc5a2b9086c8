package enums

type ItemStatus string

const (
	ItemStatusActive    ItemStatus = "active"
	ItemStatusWithdrawn ItemStatus = "withdrawn"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusActive, ItemStatusWithdrawn:
		return true
	default:
		return false
	}
}
