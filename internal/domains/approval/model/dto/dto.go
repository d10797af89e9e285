package dto

// Ack statuses reported back to the webhook caller. The webhook itself always
// answers 200; these only describe what the service did with the event.
const (
	AckProcessed = "processed"
	AckIgnored   = "ignored"
)

type Ack struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Action    string `json:"action,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
}

func Ignored(reason string) Ack {
	return Ack{Status: AckIgnored, Reason: reason}
}
