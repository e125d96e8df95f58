package model

// Entity stream names.
const (
	EntityAccounts        = "accounts"
	EntityCards           = "cards"
	EntitySavingsAccounts = "savings_accounts"
)

// DefaultEntities lists the streams in report order.
var DefaultEntities = []string{EntityAccounts, EntityCards, EntitySavingsAccounts}
