package chattemplate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Active())

	acc := &Accumulator{}
	require.NoError(t, tr.Activate(acc))
	assert.True(t, tr.Active())

	err := tr.Activate(acc)
	assert.ErrorIs(t, err, ErrTrackerReuse)
	assert.True(t, tr.Active())

	tr.Deactivate()
	assert.False(t, tr.Active())
	require.NoError(t, tr.Activate(&Accumulator{}), "a deactivated tracker can be reused")
	tr.Deactivate()
}

func TestTracker_ObserveRecordsCharacterOffsets(t *testing.T) {
	tr := NewTracker()
	acc := &Accumulator{}
	require.NoError(t, tr.Activate(acc))

	_, _ = acc.WriteString("héllo ")
	require.NoError(t, tr.Observe("wörld", acc))
	_, _ = acc.WriteString("!")
	require.NoError(t, tr.Observe("", acc))
	tr.Deactivate()

	assert.Equal(t, "héllo wörld!", acc.String())
	assert.Equal(t, []Span{{Start: 6, End: 11}, {Start: 12, End: 12}}, tr.Spans())
}

func TestTracker_InactivePassThrough(t *testing.T) {
	tr := NewTracker()
	var sb strings.Builder
	require.NoError(t, tr.Observe("body", &sb))
	assert.Equal(t, "body", sb.String())
	assert.Equal(t, []Span{}, tr.Spans())
}

func TestTracker_ObserveOtherWriterUnrecorded(t *testing.T) {
	tr := NewTracker()
	acc := &Accumulator{}
	require.NoError(t, tr.Activate(acc))
	defer tr.Deactivate()

	var captured strings.Builder
	require.NoError(t, tr.Observe("inside a set block", &captured))
	assert.Equal(t, "inside a set block", captured.String())
	assert.Empty(t, acc.String())
	assert.Empty(t, tr.Spans())
}

func TestTracker_ActivateResetsSpans(t *testing.T) {
	tr := NewTracker()
	acc := &Accumulator{}
	require.NoError(t, tr.Activate(acc))
	require.NoError(t, tr.Observe("x", acc))
	tr.Deactivate()
	require.Len(t, tr.Spans(), 1)

	require.NoError(t, tr.Activate(&Accumulator{}))
	assert.Empty(t, tr.Spans())
	tr.Deactivate()
}

func TestSpan_JSON(t *testing.T) {
	data, err := json.Marshal([]Span{{Start: 1, End: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[1,3]]`, string(data))

	var spans []Span
	require.NoError(t, json.Unmarshal([]byte(`[[4,9]]`), &spans))
	assert.Equal(t, []Span{{Start: 4, End: 9}}, spans)
}
