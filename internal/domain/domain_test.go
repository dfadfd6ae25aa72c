package domain_test

import (
	"testing"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		in      string
		want    domain.Action
		wantErr bool
	}{
		{"play", domain.ActionPlay, false},
		{"pause", domain.ActionPause, false},
		{"complete", domain.ActionComplete, false},
		{"like", domain.ActionLike, false},
		{"share", domain.ActionShare, false},
		{"", "", true},
		{"PLAY", "", true}, // case sensitive, matches the stored enum
		{"view", "", true},
		{"play ", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := domain.ParseAction(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestActionsSetIsClosed(t *testing.T) {
	assert.Len(t, domain.Actions, 5)
	for _, a := range domain.Actions {
		assert.True(t, a.Valid())
	}
}

func TestEventUpdateEmpty(t *testing.T) {
	assert.True(t, domain.EventUpdate{}.Empty())

	a := domain.ActionLike
	assert.False(t, domain.EventUpdate{Action: &a}.Empty())

	cid := int64(7)
	assert.False(t, domain.EventUpdate{ContentID: &cid}.Empty())
}
