package platform

import "time"

// Urgency mirrors the freedesktop notification urgency levels.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// DefaultAppName identifies Pixie to the notification service.
const DefaultAppName = "Pixie"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file the notification
	// center should display with the notification if supported.
	IconPath string
	// AppName overrides DefaultAppName.
	AppName string
	Urgency Urgency
	// Timeout is how long the notification stays up; zero picks 5s.
	Timeout time.Duration
}

func (o Options) appName() string {
	if o.AppName == "" {
		return DefaultAppName
	}
	return o.AppName
}

func (o Options) timeoutMillis() int32 {
	if o.Timeout <= 0 {
		return 5000
	}
	return int32(o.Timeout / time.Millisecond)
}
