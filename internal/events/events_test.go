package events

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/result-service/internal/domain"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var calls []string
	d.Subscribe(EventResultUploaded, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventResultUploaded, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventResultStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventResultUploaded, domain.Principal{IdentityID: 1, Role: domain.RoleLecturer}, []int64{1}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRedisOutboxPushesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	outbox := NewRedisOutbox(client, "results:events")
	event := NewEvent(EventResultStatusChanged,
		domain.Principal{IdentityID: 4, Role: domain.RoleHOD},
		[]int64{10, 11},
		ResultStatusChangedPayload{Transition: "department-approve", OldStatus: domain.ResultStatusSubmitted, NewStatus: domain.ResultStatusDeptApproved},
	)
	require.NoError(t, outbox.Push(context.Background(), event))

	items, err := mr.List("results:events")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(items[0]), &decoded))
	assert.Equal(t, event.ID, decoded["id"])
	assert.Equal(t, "result_status_changed", decoded["type"])
	assert.Equal(t, []any{10.0, 11.0}, decoded["result_ids"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "dept_approved", payload["new_status"])
}

func TestRedisOutboxDisabled(t *testing.T) {
	var nilOutbox *RedisOutbox
	assert.NoError(t, nilOutbox.Push(context.Background(), Event{}))
	assert.NoError(t, NewRedisOutbox(nil, "key").Push(context.Background(), Event{}))
	assert.NoError(t, NopOutbox{}.Push(context.Background(), Event{}))
}

func TestRedisOutboxPushIsBounded(t *testing.T) {
	// Accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), ContextTimeoutEnabled: true})
	defer client.Close()

	start := time.Now()
	err = NewRedisOutbox(client, "results:events").Push(context.Background(), Event{ID: "e1"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
