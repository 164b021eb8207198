// Package payload translates validated events into upstream bulk-job
// items. Mapping is pure: no I/O, no clock reads, and no failures
// beyond rejecting an unknown event type. Malformed optional structures
// (such as a companies list that isn't a list) degrade to absent rather
// than failing the write.
package payload

import (
	"fmt"

	"github.com/xraph/coalesce/event"
)

// ForEvent maps any supported event to its bulk item.
func ForEvent(ev event.Event) (event.Item, error) {
	switch e := ev.(type) {
	case *event.Identify:
		return Identify(e), nil
	case *event.Track:
		return Track(e), nil
	case *event.Group:
		return Group(e), nil
	default:
		return event.Item{}, fmt.Errorf("coalesce/payload: unsupported event type %T", ev)
	}
}

// Identify maps a profile upsert to a users item. Traits are carried
// through with date keys canonicalized; a companies trait is extracted
// into the structured companies list when it is well formed and dropped
// silently when it is not.
func Identify(ev *event.Identify) event.Item {
	data := copyMap(ev.Traits)
	delete(data, "companies")

	if companies := Companies(ev.Traits); len(companies) > 0 {
		data["companies"] = companies
	}
	if ev.UserID != "" {
		data["user_id"] = ev.UserID
	}
	if ev.Email != "" {
		data["email"] = ev.Email
	}
	if !ev.Timestamp.IsZero() {
		data["updated_at"] = ev.Timestamp.Unix()
	}
	return event.NewItem(event.DataTypeUsers, CanonicalizeDates(data))
}

// Track maps a tracked event to an events item. Properties land under
// metadata with their date keys canonicalized.
func Track(ev *event.Track) event.Item {
	data := make(map[string]any, 4)
	data["event_name"] = ev.Name
	if ev.UserID != "" {
		data["user_id"] = ev.UserID
	}
	if ev.Email != "" {
		data["email"] = ev.Email
	}
	if !ev.Timestamp.IsZero() {
		data["created_at"] = ev.Timestamp.Unix()
	}
	if len(ev.Properties) > 0 {
		data["metadata"] = CanonicalizeDates(copyMap(ev.Properties))
	}
	return event.NewItem(event.DataTypeEvents, data)
}

// Group maps a company attachment to a users item carrying a single
// structured company.
func Group(ev *event.Group) event.Item {
	company := copyMap(ev.Traits)
	company["company_id"] = ev.GroupID

	data := make(map[string]any, 4)
	data["companies"] = []map[string]any{CanonicalizeDates(company)}
	if ev.UserID != "" {
		data["user_id"] = ev.UserID
	}
	if ev.Email != "" {
		data["email"] = ev.Email
	}
	if !ev.Timestamp.IsZero() {
		data["updated_at"] = ev.Timestamp.Unix()
	}
	return event.NewItem(event.DataTypeUsers, data)
}

// Companies extracts the companies list from identify traits. A value
// that isn't a list, or list elements that aren't objects, are treated
// as absent. An object carrying an "id" field has it renamed to
// company_id.
func Companies(traits map[string]any) []map[string]any {
	raw, ok := traits["companies"]
	if !ok {
		return nil
	}

	var elems []any
	switch v := raw.(type) {
	case []any:
		elems = v
	case []map[string]any:
		elems = make([]any, len(v))
		for i, m := range v {
			elems[i] = m
		}
	default:
		return nil
	}

	out := make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		company := copyMap(m)
		if cid, ok := company["id"]; ok {
			delete(company, "id")
			company["company_id"] = cid
		}
		out = append(out, CanonicalizeDates(company))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// copyMap copies m deeply enough that canonicalization never mutates
// caller-owned data: nested objects and lists of objects are copied,
// scalar values are shared.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch nested := v.(type) {
		case map[string]any:
			out[k] = copyMap(nested)
		case []any:
			cp := make([]any, len(nested))
			for i, e := range nested {
				if em, ok := e.(map[string]any); ok {
					cp[i] = copyMap(em)
				} else {
					cp[i] = e
				}
			}
			out[k] = cp
		case []map[string]any:
			cp := make([]map[string]any, len(nested))
			for i, em := range nested {
				cp[i] = copyMap(em)
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
