// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityQueueName is the durable queue carrying facility activity events.
const ActivityQueueName = "facility.activity"

// Event type discriminators for ActivityEvent.
const (
	EventVehicleEntered  = "vehicle.entered"
	EventVehicleExited   = "vehicle.exited"
	EventPaymentRecorded = "payment.recorded"
)

// ActivityEvent is published whenever a vehicle enters or exits a facility or
// a payment is recorded. It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the primary
// database. Fields not relevant to a given event type are left at their zero
// value and omitted from the JSON payload.
type ActivityEvent struct {
	Type          string  `json:"type"`
	TenantID      uint64  `json:"tenant_id"`
	VehicleID     uint64  `json:"vehicle_id,omitempty"`
	PlateNumber   string  `json:"plate_number,omitempty"`
	SlotID        uint64  `json:"slot_id,omitempty"`
	SectionID     uint64  `json:"section_id,omitempty"`
	PaymentID     uint64  `json:"payment_id,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Method        string  `json:"method,omitempty"`
	ReceiptNumber string  `json:"receipt_number,omitempty"`
	DurationMin   int64   `json:"duration_min,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}
