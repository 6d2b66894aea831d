package junction_test

import (
	"context"
	"testing"

	"github.com/aretw0/junction"
	"github.com/aretw0/junction/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The canonical flow: two sources, one change, one membership change.
func TestJunction_EndToEnd(t *testing.T) {
	ctx := context.Background()

	a := memory.New(junction.Endpoint{Name: "a", URL: "/x"})
	b := memory.New(junction.Endpoint{Name: "b", URL: "/y"})

	reg := junction.New([]junction.Provider{a, b})

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "/x", eps[0].URL)
	assert.Equal(t, "/y", eps[1].URL)

	oldToken, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	a.SetEndpoints(junction.Endpoint{Name: "a", URL: "/x2"})

	assert.True(t, oldToken.Fired())

	newToken, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	assert.False(t, newToken.Fired())

	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/x2", eps[0].URL)
	assert.Equal(t, "/y", eps[1].URL)

	c := memory.New(junction.Endpoint{Name: "c", URL: "/z"})
	require.NoError(t, reg.Add(ctx, c))
	assert.True(t, newToken.Fired())

	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, "/z", eps[2].URL)
}
