package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    TrackDescriptor
		wantErr bool
	}{
		{"ok", TrackDescriptor{Title: "Midnight Dreams", Artist: "Luna Echo", Duration: 3 * time.Minute}, false},
		{"library source", TrackDescriptor{Title: "x", Duration: time.Second, Source: SourceLibrary}, false},
		{"blank title", TrackDescriptor{Title: "   ", Duration: time.Minute}, true},
		{"zero duration", TrackDescriptor{Title: "x"}, true},
		{"negative duration", TrackDescriptor{Title: "x", Duration: -time.Second}, true},
		{"unknown source", TrackDescriptor{Title: "x", Duration: time.Second, Source: "radio"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTrack))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:45", FormatDuration(3*time.Minute+45*time.Second))
	assert.Equal(t, "0:07", FormatDuration(7*time.Second))
	assert.Equal(t, "12:00", FormatDuration(12*time.Minute))
	assert.Equal(t, "0:00", FormatDuration(-time.Second))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("4:12")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Minute+12*time.Second, d)

	d, err = ParseDuration("2m55s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute+55*time.Second, d)

	for _, bad := range []string{"3:7", "3:75", "x:10", "-1:10", "abc"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
