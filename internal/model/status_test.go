package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusSubmitted, StatusForwarded},
		{StatusSubmitted, StatusRejected},
		{StatusForwarded, StatusAcknowledged},
		{StatusAcknowledged, StatusInProgress},
		{StatusInProgress, StatusResolved},
		{StatusResolved, StatusClosed},
		{StatusResolved, StatusReopened},
		{StatusReopened, StatusInProgress},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]string{
		{StatusSubmitted, StatusResolved},
		{StatusInProgress, StatusRejected},
		{StatusClosed, StatusReopened},
		{StatusRejected, StatusForwarded},
		{StatusResolved, StatusResolved},
		{"unknown", StatusForwarded},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []string{StatusClosed, StatusRejected} {
		for _, to := range Statuses {
			assert.False(t, CanTransition(s, to), "%s is terminal", s)
		}
	}
	assert.True(t, IsStatus(StatusReopened))
	assert.False(t, IsStatus("archived"))
}
