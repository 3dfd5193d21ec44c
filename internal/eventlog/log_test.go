package eventlog

import (
	"testing"
	"time"

	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/model"
)

func TestAttach_RecordsPublishedEvents(t *testing.T) {
	bus := eventbus.New()
	eventLog := New()
	eventLog.Attach(bus, model.EventLicenseGranted, model.EventPaymentSettled)

	bus.Publish(model.NewEvent(model.EventLicenseGranted, time.Now(), nil))
	bus.Publish(model.NewEvent(model.EventPaymentSettled, time.Now(), nil))
	bus.Publish(model.NewEvent("unrelated.event", time.Now(), nil))

	if eventLog.Len() != 2 {
		t.Errorf("expected 2 logged events, got %d", eventLog.Len())
	}
}

func TestQuery_FiltersByName(t *testing.T) {
	eventLog := New()
	now := time.Now()
	_ = eventLog.Append(model.NewEvent(model.EventLicenseGranted, now, nil))
	_ = eventLog.Append(model.NewEvent(model.EventPaymentSettled, now, nil))

	got := eventLog.Query(model.EventLicenseGranted, time.Time{})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Name != model.EventLicenseGranted {
		t.Errorf("wrong event name %q", got[0].Name)
	}
}

func TestQuery_SinceIsInclusiveAtLowerEdge(t *testing.T) {
	eventLog := New()
	cutoff := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	_ = eventLog.Append(model.NewEvent(model.EventLicenseGranted, cutoff, nil))
	_ = eventLog.Append(model.NewEvent(model.EventLicenseGranted, cutoff.Add(-time.Microsecond), nil))
	_ = eventLog.Append(model.NewEvent(model.EventLicenseGranted, cutoff.Add(time.Second), nil))

	got := eventLog.Query("", cutoff)
	if len(got) != 2 {
		t.Fatalf("expected 2 events at or after the cutoff, got %d", len(got))
	}
	if !got[0].OccurredAt.Equal(cutoff) {
		t.Errorf("event exactly at the cutoff must be included")
	}
}

func TestQuery_OrdersByOccurredAtWithInsertionTies(t *testing.T) {
	eventLog := New()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	_ = eventLog.Append(model.NewEvent("a", base.Add(2*time.Second), "late"))
	_ = eventLog.Append(model.NewEvent("b", base, "tie-first"))
	_ = eventLog.Append(model.NewEvent("c", base, "tie-second"))
	_ = eventLog.Append(model.NewEvent("d", base.Add(time.Second), "middle"))

	got := eventLog.Query("", time.Time{})
	want := []string{"tie-first", "tie-second", "middle", "late"}
	for i, payload := range want {
		if got[i].Payload != payload {
			t.Errorf("position %d: got %v, want %v", i, got[i].Payload, payload)
		}
	}
}

func TestQuery_SnapshotIgnoresLaterAppends(t *testing.T) {
	eventLog := New()
	_ = eventLog.Append(model.NewEvent("a", time.Now(), nil))

	got := eventLog.Query("", time.Time{})
	_ = eventLog.Append(model.NewEvent("b", time.Now(), nil))

	if len(got) != 1 {
		t.Errorf("snapshot grew after a later append: %d entries", len(got))
	}
}

func TestUnsubscribe_DoesNotRemoveLoggedEntries(t *testing.T) {
	bus := eventbus.New()
	eventLog := New()
	subs := eventLog.Attach(bus, model.EventLicenseGranted)

	bus.Publish(model.NewEvent(model.EventLicenseGranted, time.Now(), nil))
	for _, sub := range subs {
		bus.Unsubscribe(sub)
	}
	bus.Publish(model.NewEvent(model.EventLicenseGranted, time.Now(), nil))

	if eventLog.Len() != 1 {
		t.Errorf("expected the pre-unsubscribe entry to remain, got %d entries", eventLog.Len())
	}
}
