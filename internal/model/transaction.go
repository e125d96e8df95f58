package model

// Transaction is one detected change to a tracked field.
type Transaction struct {
	Timestamp    int64  `json:"timestamp"`
	Kind         string `json:"transaction_type"`
	AssociatedID any    `json:"associated_id"`
	Value        any    `json:"value"`
	Entity       string `json:"entity"`
	EventSource  string `json:"event_source,omitempty"`
}
