package tracestore

import (
	"testing"

	"github.com/glubean/testbridge/model"
	"github.com/stretchr/testify/require"
)

func listing() []model.TraceArtifact {
	return []model.TraceArtifact{
		{Timestamp: "2024-05-03T10-00-00"},
		{Timestamp: "2024-05-02T10-00-00"},
		{Timestamp: "2024-05-01T10-00-00"},
	}
}

func TestCursorNavigation(t *testing.T) {
	c := NewCursor(listing())
	require.Equal(t, "2024-05-03T10-00-00", c.Current().Timestamp)

	require.False(t, c.Newer())
	require.True(t, c.Older())
	require.True(t, c.Older())
	require.False(t, c.Older())
	require.Equal(t, "2024-05-01T10-00-00", c.Current().Timestamp)
	require.True(t, c.Newer())
	require.Equal(t, "2024-05-02T10-00-00", c.Current().Timestamp)

	require.Nil(t, NewCursor(nil).Current())
}

func TestCursorSelect(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr string
	}{
		{name: "newest", arg: "0", want: "2024-05-03T10-00-00"},
		{name: "previous", arg: "-1", want: "2024-05-02T10-00-00"},
		{name: "oldest", arg: "-2", want: "2024-05-01T10-00-00"},
		{name: "out of range", arg: "-3", wantErr: "out of range"},
		{name: "positive index", arg: "1", wantErr: "invalid index"},
		{name: "timestamp prefix", arg: "2024-05-02", want: "2024-05-02T10-00-00"},
		{name: "unknown prefix", arg: "1999", wantErr: "invalid index"},
		{name: "unknown text", arg: "abc", wantErr: "no trace found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(listing())
			err := c.Select(tt.arg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c.Current().Timestamp)
		})
	}

	require.Error(t, NewCursor(nil).Select("0"))
}
