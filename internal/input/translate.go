package input

import "time"

// Translate builds the Event for one hook notification. It yields nothing
// when code is not HC_ACTION or when classify does not recognize the
// notification.
func Translate(code int32, msg uintptr, p Payload, classify Classifier, now time.Time) (Event, bool) {
	if code != hcAction || p == nil || classify == nil {
		return Event{}, false
	}
	typ, platformCode, ok := classify(msg, p)
	if !ok {
		return Event{}, false
	}
	return Event{
		Type:         typ,
		Time:         now,
		PlatformCode: platformCode,
		PositionCode: p.PositionCode(),
		ExtraData:    p.ExtraInfo(),
	}, true
}
