package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "1.0.0", FormatVersion(Version1))
	require.Equal(t, "2.0.0", FormatVersion(Version2))
	require.Equal(t, "0.16.3", FormatVersion(MakeVersion(0, 16, 3)))
}

func TestCheckVersion(t *testing.T) {
	for _, tc := range []struct {
		from, to, prev int
		err            error
	}{
		{from: Version1, to: Version2, prev: Version1},
		{from: MakeVersion(1, 5, 0), to: Version2, prev: Version1},
		{from: Version2, to: Version2, prev: Version1, err: ErrAlreadyUpdated},
		{from: MakeVersion(0, 9, 0), to: Version2, prev: Version1, err: ErrVersionMismatch},
		{from: MakeVersion(3, 0, 0), to: Version2, prev: Version1, err: ErrVersionMismatch},
	} {
		err := CheckVersion(tc.from, tc.to, tc.prev)
		if tc.err == nil {
			require.NoError(t, err, tc)
			continue
		}
		require.ErrorIs(t, err, tc.err, tc)
	}
}

func TestParseVersion(t *testing.T) {
	for _, tc := range []struct {
		s   string
		v   int
		bad bool
	}{
		{s: "1.0.0", v: Version1},
		{s: "2", v: Version2},
		{s: "0.16", v: MakeVersion(0, 16, 0)},
		{s: "1.2.3", v: MakeVersion(1, 2, 3)},
		{s: "", bad: true},
		{s: "1.x", bad: true},
		{s: "1.1000", bad: true},
		{s: "-1", bad: true},
		{s: "1.2.3.4", bad: true},
	} {
		v, err := ParseVersion(tc.s)
		if tc.bad {
			require.Error(t, err, tc.s)
			continue
		}
		require.NoError(t, err, tc.s)
		require.Equal(t, tc.v, v, tc.s)
		require.Equal(t, FormatVersion(v), FormatVersion(tc.v))
	}
}
