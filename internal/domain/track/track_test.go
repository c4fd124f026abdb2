package track

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Title(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{
			name:     "display title takes precedence",
			req:      Request{Query: "ado - show", DisplayTitle: "Ado - 唱"},
			expected: "Ado - 唱",
		},
		{
			name:     "falls back to query",
			req:      NewRequest("  yoasobi idol  "),
			expected: "yoasobi idol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.Title())
		})
	}
}

func TestResolved_HasDuration(t *testing.T) {
	var nilTrack *Resolved
	assert.False(t, nilTrack.HasDuration())
	assert.False(t, (&Resolved{}).HasDuration())
	assert.True(t, (&Resolved{Duration: 3 * time.Minute}).HasDuration())
}

func TestParseLoopMode(t *testing.T) {
	tests := []struct {
		input    string
		expected LoopMode
		wantErr  bool
	}{
		{input: "off", expected: LoopOff},
		{input: "Single", expected: LoopSingle},
		{input: " queue ", expected: LoopQueue},
		{input: "all", expected: LoopQueue},
		{input: "1", expected: LoopSingle},
		{input: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseLoopMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownLoopMode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestLoopMode_NextCycles(t *testing.T) {
	assert.Equal(t, LoopSingle, LoopOff.Next())
	assert.Equal(t, LoopQueue, LoopSingle.Next())
	assert.Equal(t, LoopOff, LoopQueue.Next())
	assert.Equal(t, "queue", LoopQueue.String())
	assert.Equal(t, "unknown", LoopMode(9).String())
}
