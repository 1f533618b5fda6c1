package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tagvault/pkg/adapters/lifecycle"
	"github.com/aretw0/tagvault/pkg/core"
)

func TestSource_MergesInputs(t *testing.T) {
	notes := make(chan core.Event, 1)
	tags := make(chan core.Event, 1)

	src := lifecycle.NewSource(notes, tags)
	require.NoError(t, src.Start(context.Background()))

	notes <- core.Event{Type: core.EventReload, Collection: "notes"}
	tags <- core.Event{Type: core.EventModify, Collection: "tags", Key: "#a"}
	close(notes)
	close(tags)

	got := []string{}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-src.Events():
			if !ok {
				assert.ElementsMatch(t, []string{"RELOAD notes", "MODIFY tags/#a"}, got)
				return
			}
			got = append(got, e.String())
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestSource_StopsOnCancel(t *testing.T) {
	in := make(chan core.Event)
	ctx, cancel := context.WithCancel(context.Background())

	src := lifecycle.NewSource(in)
	require.NoError(t, src.Start(ctx))
	cancel()

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream not closed after cancel")
	}
}
