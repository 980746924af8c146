package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{name: "limit only", cfg: Config{Limit: 10}},
		{name: "offset only", cfg: Config{Offset: 5}},
		{name: "limit and offset", cfg: Config{Limit: 10, Offset: 5}},
		{name: "tail only", cfg: Config{Tail: 10}},
		{name: "tail ignores offset", cfg: Config{Tail: 10, Offset: 5}},
		{name: "limit and tail", cfg: Config{Limit: 10, Tail: 5}, errMsg: "mutually exclusive"},
		{name: "negative limit", cfg: Config{Limit: -1}, errMsg: "--limit must be non-negative"},
		{name: "negative offset", cfg: Config{Offset: -1}, errMsg: "--offset must be non-negative"},
		{name: "negative tail", cfg: Config{Tail: -1}, errMsg: "--tail must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	require.ErrorIs(t, Config{Limit: 1, Tail: 1}.Validate(), ErrExclusive)
}

func TestIsActive(t *testing.T) {
	assert.False(t, Config{}.IsActive())
	assert.True(t, Config{Limit: 1}.IsActive())
	assert.True(t, Config{Offset: 1}.IsActive())
	assert.True(t, Config{Tail: 1}.IsActive())
}

func TestApply(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		cfg  Config
		want []int
	}{
		{name: "inactive", cfg: Config{}, want: rows},
		{name: "limit", cfg: Config{Limit: 2}, want: []int{1, 2}},
		{name: "offset", cfg: Config{Offset: 3}, want: []int{4, 5}},
		{name: "offset and limit", cfg: Config{Offset: 1, Limit: 2}, want: []int{2, 3}},
		{name: "limit past end", cfg: Config{Offset: 4, Limit: 10}, want: []int{5}},
		{name: "offset past end", cfg: Config{Offset: 10}, want: []int{}},
		{name: "tail", cfg: Config{Tail: 2}, want: []int{4, 5}},
		{name: "tail larger than rows", cfg: Config{Tail: 10}, want: rows},
		{name: "tail ignores offset", cfg: Config{Tail: 1, Offset: 2}, want: []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.cfg, rows))
		})
	}
}

func TestPage(t *testing.T) {
	assert.Equal(t, "rows 11-20 of 57", Config{Offset: 10, Limit: 10}.PageOf(57).String())
	assert.Equal(t, "rows 56-57 of 57", Config{Tail: 2}.PageOf(57).String())
	assert.Equal(t, "no rows of 3", Config{Offset: 5}.PageOf(3).String())
	assert.Equal(t, Page{Start: 0, End: 3, Total: 3}, Config{}.PageOf(3))
}
