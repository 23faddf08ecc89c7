package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubKeepsLatestCount(t *testing.T) {
	hub := NewHub()
	updates, unsubscribe := hub.Subscribe(7)
	defer unsubscribe()

	hub.Publish(7, 1)
	hub.Publish(7, 2)
	hub.Publish(7, 3)
	hub.Publish(8, 100)

	assert.EqualValues(t, 3, <-updates)
	select {
	case v := <-updates:
		t.Fatalf("unexpected extra update %d", v)
	default:
	}
}
