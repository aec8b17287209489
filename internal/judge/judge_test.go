package judge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/judge/openai"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_JUDGE_KEY", "")
	_, err := New(config.JudgeConfig{Type: "openai", APIKeyEnv: "TEST_JUDGE_KEY"})
	assert.ErrorContains(t, err, "TEST_JUDGE_KEY")
}

func TestNew_OpenAI(t *testing.T) {
	t.Setenv("TEST_JUDGE_KEY", "secret")
	j, err := New(config.JudgeConfig{Type: "openai", APIKeyEnv: "TEST_JUDGE_KEY", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	oj, ok := j.(*openai.Judge)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", oj.Model())
}

func TestNew_WrapsRateLimiter(t *testing.T) {
	t.Setenv("TEST_JUDGE_KEY", "secret")
	j, err := New(config.JudgeConfig{APIKeyEnv: "TEST_JUDGE_KEY", RequestsPerMinute: 10})
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, j)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.JudgeConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestNewRateLimited_DisabledReturnsNext(t *testing.T) {
	next := domain.JudgeFunc(func(context.Context, string) (string, error) { return "YES", nil })
	j := NewRateLimited(next, 0)
	out, err := j.Judge(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "YES", out)
}

func TestRateLimited_WaitsBetweenCalls(t *testing.T) {
	calls := 0
	next := domain.JudgeFunc(func(context.Context, string) (string, error) {
		calls++
		return "NO", nil
	})
	j := NewRateLimited(next, 1)

	_, err := j.Judge(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = j.Judge(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
