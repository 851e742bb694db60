package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

func newTracedManager(t *testing.T, trace *[]string) *Manager {
	t.Helper()

	m := NewManager(nopLogger(), nil)
	require.NoError(t, m.Register(&recorder{name: "logging", weight: 30, trace: trace}))
	require.NoError(t, m.Register(&recorder{name: "recovery", weight: 10, trace: trace}))
	require.NoError(t, m.Register(&recorder{name: "auth", weight: 60, optIn: true, trace: trace}))
	require.NoError(t, m.Register(&recorder{name: "cache", weight: 70, trace: trace}))
	require.NoError(t, m.Finalize())
	return m
}

func TestManager_OrdersByWeightAndSkipsOptIn(t *testing.T) {
	var trace []string
	m := newTracedManager(t, &trace)

	assert.Equal(t, []string{"recovery", "logging", "auth", "cache"}, m.Names())

	m.Execute(newRequestCtx("GET", "/"), func(*fasthttp.RequestCtx) {
		trace = append(trace, "handler")
	}, nil)

	assert.Equal(t, []string{"recovery", "logging", "cache", "handler"}, trace)
}

func TestManager_RouteOptsInAndDisables(t *testing.T) {
	var trace []string
	m := newTracedManager(t, &trace)

	config := &types.RouteConfig{
		Middlewares:         []string{"auth"},
		DisabledMiddlewares: []string{"cache"},
	}

	for i := 0; i < 2; i++ {
		trace = trace[:0]
		m.Execute(newRequestCtx("GET", "/"), func(*fasthttp.RequestCtx) {
			trace = append(trace, "handler")
		}, config)
		assert.Equal(t, []string{"recovery", "logging", "auth", "handler"}, trace)
	}
}

func TestManager_RegistrationRules(t *testing.T) {
	var trace []string
	m := NewManager(nopLogger(), nil)

	assert.ErrorIs(t, m.Register(nil), types.ErrMiddlewareInvalidType)
	require.NoError(t, m.Register(&recorder{name: "a", weight: 1, trace: &trace}))
	assert.ErrorIs(t, m.Register(&recorder{name: "a", weight: 2, trace: &trace}), types.ErrInvalidParameter)
	require.NoError(t, m.Register(&recorder{name: "b", weight: 1, trace: &trace}))

	assert.ErrorIs(t, m.Finalize(), types.ErrInvalidParameter)
}

func TestManager_RegisterAfterFinalize(t *testing.T) {
	var trace []string
	m := newTracedManager(t, &trace)

	err := m.Register(&recorder{name: "late", weight: 99, trace: &trace})
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestManager_UnfinalizedRunsHandlerOnly(t *testing.T) {
	var trace []string
	m := NewManager(nopLogger(), nil)
	require.NoError(t, m.Register(&recorder{name: "a", weight: 1, trace: &trace}))

	called := false
	m.Execute(newRequestCtx("GET", "/"), func(*fasthttp.RequestCtx) { called = true }, nil)

	assert.True(t, called)
	assert.Empty(t, trace)
}

func TestManager_RegisterFromConfig(t *testing.T) {
	m := NewManager(nopLogger(), nil)

	err := m.RegisterFromConfig(&types.MiddlewaresConfig{
		Enabled:  true,
		Recovery: item(10, nil),
		Metadata: item(20, nil),
		Logging:  &types.MiddlewareItemConfig{Enabled: false, Weight: 30},
		Auth:     item(60, map[string]interface{}{"token": "secret"}),
	}, Dependencies{})
	require.NoError(t, err)

	assert.Equal(t, []string{"recovery", "metadata", "auth"}, m.Names())
}
