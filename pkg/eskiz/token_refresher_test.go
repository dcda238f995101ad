package eskiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRefresher_CurrentToken(t *testing.T) {
	refresher := &tokenRefresher{
		token: "test-token",
	}

	assert.Equal(t, "test-token", refresher.CurrentToken())
}

func TestTokenRefresher_Token_UsesCache(t *testing.T) {
	refresher := &tokenRefresher{token: "cached"}

	token, err := refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
}

func TestTokenRefresher_RefreshToken_KeepsNewerToken(t *testing.T) {
	refresher := &tokenRefresher{token: "fresh"}

	token, err := refresher.RefreshToken(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestTokenRefresher_RefreshToken_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refresher := &tokenRefresher{}

	token, err := refresher.RefreshToken(ctx, "")

	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, token)
}

func TestTokenRefresher_Token_TimeoutContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	<-ctx.Done()

	refresher := &tokenRefresher{}

	token, err := refresher.Token(ctx)

	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Empty(t, token)
}

func TestTokenRefresher_RefreshTokenLocked_NilContext(t *testing.T) {
	refresher := &tokenRefresher{}

	//nolint:staticcheck // nil context is the case under test
	token, err := refresher.refreshTokenLocked(nil)

	require.Error(t, err)
	assert.Empty(t, token)
}

func TestTokenRefresher_Thread_Safety(t *testing.T) {
	refresher := &tokenRefresher{}

	const goroutines = 5
	done := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer func() { done <- true }()

			refresher.mu.Lock()
			refresher.token = string(rune('a' + id))
			refresher.mu.Unlock()
		}(i)
	}

	for i := 0; i < goroutines; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Goroutine did not complete within timeout")
		}
	}

	token := refresher.CurrentToken()
	assert.Len(t, token, 1)
	assert.Contains(t, "abcde", token)
}

func TestService_SendSMS_EmptyRecipient(t *testing.T) {
	svc := NewService(NewConfig("", "", "", "4546"), nil)

	_, err := svc.SendSMS(context.Background(), SMS{To: " + ", Message: "hi"})
	require.ErrorIs(t, err, ErrEmptyRecipient)
}

func TestNewConfig_Normalizes(t *testing.T) {
	cfg := NewConfig(" https://notify.eskiz.uz/ ", " ops@fleet.test ", "secret", " 4546 ")
	assert.Equal(t, "https://notify.eskiz.uz", cfg.URL())
	assert.Equal(t, "ops@fleet.test", cfg.Email())
	assert.Equal(t, "4546", cfg.From())
}
