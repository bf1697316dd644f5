package enums

import "fmt"

// NotificationChannel selects the delivery mechanism for a notification.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelEmail,
	NotificationChannelSMS,
}

// IsValid reports whether the value is a known NotificationChannel.
func (n NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationChannel converts raw input into a NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}

// NotificationStatus tracks delivery progress of a queued notification.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	switch n {
	case NotificationStatusPending, NotificationStatusSent, NotificationStatusFailed:
		return true
	}
	return false
}
