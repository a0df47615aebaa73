/*
Package events provides an in-memory event broker for Odin's predictors.

The engine publishes an Event whenever a predictor executes or fails an
action, raises a thermal alert, isolates a battery bank, detects a schedule
conflict or escalates an activity's priority. Subscribers receive events on a
buffered channel and may filter by EventType.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(events.EventBankIsolated)
	go func() {
		for ev := range sub {
			fmt.Println(ev.Message)
		}
	}()

Delivery is best effort. Publish never blocks: an event is dropped when the
broker queue (100) is full, and a subscriber whose buffer (50) is full misses
the event.
*/
package events
