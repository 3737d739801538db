package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id uint64) Key  { return Key{Kind: Document, ID: id} }
func page(id uint64) Key { return Key{Kind: TextPage, ID: id} }

func TestRegisterRelease(t *testing.T) {
	var r Registry

	require.NoError(t, r.Register(doc(1)))
	assert.Equal(t, 1, r.Len(Document))
	assert.Equal(t, 0, r.Len(TextPage), "kinds are distinct")
	assert.ErrorIs(t, r.Release(page(1)), ErrNotLive)
	assert.ErrorIs(t, r.Register(doc(1)), ErrDuplicate)

	require.NoError(t, r.Release(doc(1)))
	assert.Equal(t, 0, r.Len(Document))
	assert.ErrorIs(t, r.Release(doc(1)), ErrNotLive)
}

func TestChildren(t *testing.T) {
	var r Registry
	require.NoError(t, r.Register(doc(1)))
	require.NoError(t, r.RegisterChild(doc(1), page(3)))
	require.NoError(t, r.RegisterChild(doc(1), page(2)))

	assert.Equal(t, []Key{page(2), page(3)}, r.Children(doc(1)))
	assert.ErrorIs(t, r.Release(doc(1)), ErrLiveChildren)

	require.NoError(t, r.Release(page(2)))
	require.NoError(t, r.Release(page(3)))
	assert.Empty(t, r.Children(doc(1)))
	require.NoError(t, r.Release(doc(1)))

	assert.Nil(t, r.Children(doc(1)))
}

func TestRegisterChildNeedsLiveParent(t *testing.T) {
	var r Registry
	assert.ErrorIs(t, r.RegisterChild(doc(9), page(1)), ErrNotLive)
	assert.Equal(t, 0, r.Len(TextPage))
}

func TestLen(t *testing.T) {
	var r Registry
	require.NoError(t, r.Register(doc(1)))
	require.NoError(t, r.Register(doc(2)))
	require.NoError(t, r.RegisterChild(doc(1), page(3)))

	assert.Equal(t, 2, r.Len(Document))
	assert.Equal(t, 1, r.Len(TextPage))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Key
		want string
	}{
		{doc(4), "document 4"},
		{page(7), "text page 7"},
		{Key{Kind: 9, ID: 1}, "kind(9) 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.k.String())
	}
}

func TestConcurrentChildren(t *testing.T) {
	var r Registry
	require.NoError(t, r.Register(doc(1)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			k := page(id)
			if err := r.RegisterChild(doc(1), k); err != nil {
				panic(fmt.Sprint(err))
			}
			if err := r.Release(k); err != nil {
				panic(fmt.Sprint(err))
			}
		}(uint64(i + 10))
	}
	wg.Wait()

	assert.Empty(t, r.Children(doc(1)))
	require.NoError(t, r.Release(doc(1)))
}
