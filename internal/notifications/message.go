package notifications

// Message is the payload published to the notification queues. Workers treat
// it as the wire contract; fields must stay backwards compatible.
type Message struct {
	UserID    string `json:"userId"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}
