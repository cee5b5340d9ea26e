package activitylog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWhenAddrEmpty(t *testing.T) {
	l := New("", "", 0, "", zerolog.Nop())
	require.Nil(t, l)
}

func TestNilLog_RecordAndCloseAreNoops(t *testing.T) {
	var l *Log
	require.NotPanics(t, func() {
		l.Record(Entry{SessionID: "s1"})
	})
	require.NoError(t, l.Close())
}

func TestNew_DefaultsKeyWhenEmpty(t *testing.T) {
	l := New("127.0.0.1:1", "", 0, "", zerolog.Nop())
	require.NotNil(t, l)
	require.Equal(t, "enrich:activity", l.key)
	_ = l.Close()
}
