package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func enabledConfig(name string) Config {
	return Config{
		Name:             name,
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 2,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	require.Nil(t, New[int](Config{Name: "off"}))

	cb := New[int](enabledConfig("on"))
	require.NotNil(t, cb)
	require.Equal(t, "on", cb.Name())
	require.Equal(t, StateClosed, cb.State())
}

func TestExecute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cb      *CircuitBreaker[string]
		fn      func() (string, error)
		want    string
		wantErr error
	}{
		{
			name: "nil breaker passes through",
			fn:   func() (string, error) { return "direct", nil },
			want: "direct",
		},
		{
			name:    "nil breaker returns error",
			fn:      func() (string, error) { return "", errBoom },
			wantErr: errBoom,
		},
		{
			name: "enabled breaker returns result",
			cb:   New[string](enabledConfig("ok")),
			fn:   func() (string, error) { return "value", nil },
			want: "value",
		},
		{
			name:    "enabled breaker returns error",
			cb:      New[string](enabledConfig("fail")),
			fn:      func() (string, error) { return "", errBoom },
			wantErr: errBoom,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Execute(tc.cb, tc.fn)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := New[string](enabledConfig("trip"))

	for range 2 {
		_, err := Execute(cb, func() (string, error) { return "", errBoom })
		require.ErrorIs(t, err, errBoom)
	}

	require.Equal(t, StateOpen, cb.State())

	_, err := Execute(cb, func() (string, error) { return "not called", nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.True(t, IsUnavailable(err))
}

func TestCircuitBreaker_IsSuccessfulKeepsCircuitClosed(t *testing.T) {
	t.Parallel()

	errExpected := errors.New("not found")

	cfg := enabledConfig("classified")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errExpected)
	}

	cb := New[string](cfg)

	for range 5 {
		_, err := Execute(cb, func() (string, error) { return "", errExpected })
		require.ErrorIs(t, err, errExpected)
	}

	require.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		transitions []State
	)

	cfg := enabledConfig("recover")
	cfg.OnStateChange = func(_ string, _, to State) {
		mu.Lock()
		defer mu.Unlock()

		transitions = append(transitions, to)
	}

	cb := New[string](cfg)

	for range 2 {
		_, _ = Execute(cb, func() (string, error) { return "", errBoom })
	}

	time.Sleep(150 * time.Millisecond)

	got, err := Execute(cb, func() (string, error) { return "recovered", nil })
	require.NoError(t, err)
	require.Equal(t, "recovered", got)
	require.Equal(t, StateClosed, cb.State())

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_TooManyRequestsWhileHalfOpen(t *testing.T) {
	t.Parallel()

	cb := New[string](enabledConfig("probe"))

	for range 2 {
		_, _ = Execute(cb, func() (string, error) { return "", errBoom })
	}

	time.Sleep(150 * time.Millisecond)

	probing := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = Execute(cb, func() (string, error) {
			close(probing)
			<-release

			return "probe", nil
		})
	}()

	<-probing

	_, err := Execute(cb, func() (string, error) { return "rejected", nil })
	require.ErrorIs(t, err, ErrTooManyRequests)
	require.True(t, IsUnavailable(err))

	close(release)
	<-done
}
