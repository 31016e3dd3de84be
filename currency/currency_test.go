package currency

import "testing"

func TestNewContextDefaultsAndUppercases(t *testing.T) {
	if got := NewContext("").Current(); got != "USD" {
		t.Fatalf("empty code should default to USD, got %q", got)
	}
	if got := NewContext("eur").Current(); got != "EUR" {
		t.Fatalf("code should be uppercased, got %q", got)
	}
}

func TestSetNotifiesSubscribers(t *testing.T) {
	c := NewContext("USD")

	var got []string
	unsubscribe := c.Subscribe(func(code string) {
		got = append(got, code)
	})
	defer unsubscribe()

	c.Set("eur")
	if c.Current() != "EUR" {
		t.Fatalf("Current() = %q, want EUR", c.Current())
	}
	if len(got) != 1 || got[0] != "EUR" {
		t.Fatalf("listener got %v, want [EUR]", got)
	}
}

func TestSetSameCodeIsNoOp(t *testing.T) {
	c := NewContext("USD")

	notified := 0
	defer c.Subscribe(func(string) { notified++ })()

	c.Set("USD")
	c.Set("usd")
	c.Set("")

	if notified != 0 {
		t.Fatalf("unchanged currency notified %d times, want 0", notified)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	c := NewContext("USD")

	notified := 0
	unsubscribe := c.Subscribe(func(string) { notified++ })
	unsubscribe()

	c.Set("EUR")
	if notified != 0 {
		t.Fatalf("unsubscribed listener notified %d times, want 0", notified)
	}
}

func TestListenerMayReadCurrent(t *testing.T) {
	c := NewContext("USD")

	var seen string
	defer c.Subscribe(func(string) { seen = c.Current() })()

	c.Set("GBP")
	if seen != "GBP" {
		t.Fatalf("listener observed %q, want GBP", seen)
	}
}
