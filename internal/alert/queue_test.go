package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/pkg/exception"
)

func TestQueuePublishAndConsume(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	require.NoError(t, q.TryPublish(NewEvent(KindOrderAccepted, map[string]string{"clOrdId": "ORD_1"})))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan Event, 1)
	go q.Run(ctx, func(e Event) { got <- e })

	select {
	case e := <-got:
		assert.Equal(t, KindOrderAccepted, e.Kind)
		assert.Equal(t, "ORD_1", e.Fields["clOrdId"])
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestQueueOverflowDropsWithoutBlocking(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	require.NoError(t, q.TryPublish(NewEvent(KindConnectionUp, nil)))

	err := q.TryPublish(NewEvent(KindConnectionUp, nil))
	assert.ErrorIs(t, err, exception.ErrAlertQueueFull)
	assert.EqualValues(t, 1, q.Dropped())
}

func TestQueueClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1)
	q.Close()

	err := q.TryPublish(NewEvent(KindSessionLogout, nil))
	assert.ErrorIs(t, err, exception.ErrAlertQueueClosed)
}

func TestQueueCloseDuringPublish(t *testing.T) {
	q := NewQueue(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := q.TryPublish(NewEvent(KindConnectionUp, nil)); errors.Is(err, exception.ErrAlertQueueClosed) {
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()

	assert.ErrorIs(t, q.TryPublish(NewEvent(KindConnectionUp, nil)), exception.ErrAlertQueueClosed)
}
