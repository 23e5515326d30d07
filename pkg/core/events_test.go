package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvents_ImplementEvent(t *testing.T) {
	now := time.Now()
	events := []Event{
		&ActivityNoted{PausedUntil: now.Add(3 * time.Minute), Timestamp: now},
		&ResumedNow{Timestamp: now},
		&RefreshSkipped{Kind: KindTable, Source: SourceTimer, Reason: OutcomeSkippedPaused, Timestamp: now},
		&RefreshStarted{Kind: KindTable, AttemptID: "a1", Source: SourceTimer, Timestamp: now},
		&RefreshSucceeded{Kind: KindTable, AttemptID: "a1", Bytes: 12, Duration: time.Second, Timestamp: now},
		&RefreshFailed{Kind: KindLog, AttemptID: "a2", Error: errors.New("boom"), Timestamp: now},
		&RefreshDiscarded{Kind: KindNotification, AttemptID: "a3", Timestamp: now},
		&HintReceived{Kind: KindLog, Timestamp: now},
	}

	for _, e := range events {
		assert.NotNil(t, e)
	}
}

func TestRefreshFailed_CarriesError(t *testing.T) {
	err := errors.New("upstream 502")
	e := &RefreshFailed{Kind: KindLog, Error: err}
	assert.ErrorIs(t, e.Error, err)
}
