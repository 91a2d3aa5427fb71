package contract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"empower1.com/empower1blockchain/internal/chainerrors"
)

func newCounter(creator string) *Contract {
	views := map[string]ViewFunc{
		"getCount": func(storage map[string]interface{}, _ ...interface{}) (interface{}, error) {
			return storage["count"], nil
		},
	}
	functions := map[string]Func{
		"__init__": func(ctx *Context, args ...interface{}) (interface{}, error) {
			return nil, ctx.Storage.Set("count", int64(0))
		},
		"increment": func(ctx *Context, _ ...interface{}) (interface{}, error) {
			raw, err := ctx.Storage.Get("count")
			if err != nil {
				return nil, err
			}
			count, _ := raw.(int64)
			count++
			if err := ctx.Storage.Set("count", count); err != nil {
				return nil, err
			}
			return count, nil
		},
	}
	return New("Counter", creator, 42, map[string]interface{}{"count": int64(0)}, views, functions)
}

func TestNewDerivesAddressFromDeployment(t *testing.T) {
	a := newCounter("alice")
	b := newCounter("bob")
	require.NotEmpty(t, a.Address())
	require.NotEqual(t, a.Address(), b.Address(), "different creators must derive different addresses")
	require.Equal(t, "Counter", a.Name())
	require.Equal(t, "alice", a.Creator())
}

func TestCallViewReadsSnapshot(t *testing.T) {
	c := newCounter("alice")
	got, err := c.CallView("getCount")
	require.NoError(t, err)
	require.Equal(t, int64(0), got)
}

func TestCallViewUnknownFunction(t *testing.T) {
	c := newCounter("alice")
	_, err := c.CallView("doesNotExist")
	require.ErrorIs(t, err, chainerrors.ErrUnknownFunction)
}

func TestCodeSizeReflectsStorageAndFunctionCount(t *testing.T) {
	c := newCounter("alice")
	empty := New("Empty", "alice", 1, nil, nil, nil)
	require.Greater(t, c.CodeSize(), empty.CodeSize())
}

func TestInitializedStartsFalse(t *testing.T) {
	c := newCounter("alice")
	require.False(t, c.Initialized())
}
