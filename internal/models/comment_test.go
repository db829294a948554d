package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		content string
		expect  []string
	}{
		{"no mentions here", []string{}},
		{"hey @alice can you look", []string{"alice"}},
		{"@bob @alice and @bob again", []string{"bob", "alice"}},
		{"mail me at carol@example.com", []string{"example"}},
		{"@dave_k, thanks", []string{"dave_k"}},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.expect, ExtractMentions(tt.content))
		})
	}
}

func TestUserMatchesMention(t *testing.T) {
	u := &User{Email: "Alice.Smith@example.com", FirstName: "Ally"}

	assert.True(t, u.MatchesMention("alice.smith"))
	assert.True(t, u.MatchesMention("ALLY"))
	assert.False(t, u.MatchesMention("alice"))
	assert.False(t, u.MatchesMention(""))
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{FirstName: "Jane", LastName: "Doe"}).FullName())
	assert.Equal(t, "jd@example.com", (&User{Email: "jd@example.com"}).FullName())
}

func TestCheckAcyclic(t *testing.T) {
	// a <- b <- c (c reports to b, b reports to a)
	parents := map[string]string{"b": "a", "c": "b"}
	lookup := func(_ context.Context, id string) (*string, error) {
		p, ok := parents[id]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}
	ctx := context.Background()

	assert.NoError(t, CheckAcyclic(ctx, "d", "c", lookup))
	assert.NoError(t, CheckAcyclic(ctx, "c", "a", lookup))
	assert.ErrorIs(t, CheckAcyclic(ctx, "a", "c", lookup), ErrCycle)
	assert.ErrorIs(t, CheckAcyclic(ctx, "a", "a", lookup), ErrCycle)

	boom := errors.New("boom")
	err := CheckAcyclic(ctx, "x", "y", func(context.Context, string) (*string, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 33.33, Percent(1, 3))
}

func TestDedupKeyFor(t *testing.T) {
	assert.Equal(t, "task_completed:u1:t1", DedupKeyFor(NotifyTaskCompleted, "u1", "t1", ""))
	assert.Equal(t, "task_due_soon:u1:t1:2026-03-10", DedupKeyFor(NotifyTaskDueSoon, "u1", "t1", "2026-03-10"))
}
