package dispatcher

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const maxPayloadLen = 4096

var (
	zoneEntityRe = regexp.MustCompile(`(?i)\bzone\.([\p{L}\d_-]+)`)
	placeRe      = regexp.MustCompile(`(?i)\b(?:entered|left|leaving|exited|arrived at|arrived|reached|betreten|verlassen)\s+(?:the\s+)?(?:zone\s+|geofence\s+)?["']?([\p{L}\d_-]+)`)
	geofenceRe   = regexp.MustCompile(`(?i)\b(?:entered|left|leaving|exited|arrived|reached|zone|geofence|betreten|verlassen)\b`)
	leftRe       = regexp.MustCompile(`(?i)\b(?:left|leaving|exited|verlassen)\b`)
)

type triggerJSON struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
	Place   string `json:"place"`
	Left    bool   `json:"left"`
	Event   string `json:"event"`
}

// ParseTrigger turns a raw /process body into a trigger. Bodies may be JSON
// objects or free text. Free text mentioning a geofence becomes a geofence
// trigger, anything else a timer trigger.
func ParseTrigger(body string, now time.Time) (core.TriggerEvent, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return core.TriggerEvent{}, &core.ValidationError{Field: "payload", Reason: "empty trigger payload"}
	}
	if len(body) > maxPayloadLen {
		return core.TriggerEvent{}, &core.ValidationError{Field: "payload", Reason: fmt.Sprintf("longer than %d bytes", maxPayloadLen)}
	}

	if strings.HasPrefix(body, "{") {
		return parseJSONTrigger(body, now)
	}
	return parseTextTrigger(body, now), nil
}

func parseJSONTrigger(body string, now time.Time) (core.TriggerEvent, error) {
	var raw triggerJSON
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return core.TriggerEvent{}, &core.ValidationError{Field: "payload", Reason: "malformed JSON: " + err.Error()}
	}

	ev := core.TriggerEvent{
		Kind:       core.TriggerKind(strings.ToLower(raw.Kind)),
		Payload:    raw.Payload,
		Place:      raw.Place,
		Left:       raw.Left || strings.EqualFold(raw.Event, "leave"),
		ReceivedAt: now,
	}
	if ev.Kind == "" {
		ev.Kind = core.TriggerTimer
		if ev.Place != "" {
			ev.Kind = core.TriggerGeofence
		}
	}

	switch ev.Kind {
	case core.TriggerTimer, core.TriggerGeofence, core.TriggerChat:
	default:
		return core.TriggerEvent{}, &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown trigger kind %q", raw.Kind)}
	}
	if ev.Kind == core.TriggerChat && strings.TrimSpace(ev.Payload) == "" {
		return core.TriggerEvent{}, &core.ValidationError{Field: "payload", Reason: "chat trigger without message"}
	}
	if ev.Payload == "" {
		ev.Payload = body
	}
	return ev, nil
}

func parseTextTrigger(body string, now time.Time) core.TriggerEvent {
	ev := core.TriggerEvent{Kind: core.TriggerTimer, Payload: body, ReceivedAt: now}
	if !geofenceRe.MatchString(body) {
		return ev
	}

	ev.Kind = core.TriggerGeofence
	ev.Left = leftRe.MatchString(body)
	if m := zoneEntityRe.FindStringSubmatch(body); m != nil {
		ev.Place = m[1]
	} else if m := placeRe.FindStringSubmatch(body); m != nil {
		ev.Place = m[1]
	}
	return ev
}
