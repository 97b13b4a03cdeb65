package signal

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTrack(t *testing.T) {
	t.Parallel()

	t.Run("toggles", func(t *testing.T) {
		t.Parallel()
		tr, err := NewLocalTrack("mic", "cam", true, true)
		require.NoError(t, err)

		changes := 0
		tr.onChange = func() { changes++ }

		assert.False(t, tr.MicrophoneMuted())
		assert.True(t, tr.CameraEnabled())

		tr.MuteMicrophone()
		tr.MuteMicrophone()
		tr.CameraOff()
		assert.True(t, tr.MicrophoneMuted())
		assert.False(t, tr.CameraEnabled())
		assert.Equal(t, 2, changes)

		tr.UnmuteMicrophone()
		tr.CameraOn()
		assert.False(t, tr.MicrophoneMuted())
		assert.True(t, tr.CameraEnabled())
		assert.Equal(t, 4, changes)

		tr.Stop()
		tr.MuteMicrophone()
		assert.False(t, tr.MicrophoneMuted())
		assert.Equal(t, 4, changes)
	})

	t.Run("no camera", func(t *testing.T) {
		t.Parallel()
		tr, err := NewLocalTrack("mic", "", true, false)
		require.NoError(t, err)
		assert.Len(t, tr.Tracks(), 1)
		tr.CameraOn()
		assert.False(t, tr.CameraEnabled())
		assert.ErrorIs(t, tr.WriteRTP(webrtc.RTPCodecTypeVideo, &rtp.Packet{}), ErrNoSuchTrack)
	})

	t.Run("write", func(t *testing.T) {
		t.Parallel()
		tr, err := NewLocalTrack("mic", "cam", true, true)
		require.NoError(t, err)
		pkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1}, Payload: []byte{1, 2, 3}}
		assert.NoError(t, tr.WriteRTP(webrtc.RTPCodecTypeAudio, pkt))
		tr.MuteMicrophone()
		assert.NoError(t, tr.WriteRTP(webrtc.RTPCodecTypeAudio, pkt))
		tr.Stop()
		assert.NoError(t, tr.WriteRTP(webrtc.RTPCodecTypeVideo, pkt))
	})
}
