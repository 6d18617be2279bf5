package ir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrMakeTypeIsIdempotent(t *testing.T) {
	in := NewInterner()
	a := in.GetOrMakeType("LFoo;")
	b := in.GetOrMakeType("LFoo;")
	assert.Equal(t, a, b, "interning the same descriptor twice must yield the same handle")

	c := in.GetOrMakeType("LBar;")
	assert.NotEqual(t, a, c)
}

func TestGetTypeLookupOnlyMiss(t *testing.T) {
	in := NewInterner()
	_, ok := in.GetType("LNeverInterned;")
	assert.False(t, ok)

	in.GetOrMakeType("LNeverInterned;")
	_, ok = in.GetType("LNeverInterned;")
	assert.True(t, ok)
}

func TestInternerConcurrentSafe(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in.GetOrMakeType("LShared;")
			in.GetOrMakeString("shared")
		}()
	}
	wg.Wait()

	a := in.GetOrMakeType("LShared;")
	b := in.GetOrMakeType("LShared;")
	assert.Equal(t, a, b)
}

func TestProtoInterning(t *testing.T) {
	in := NewInterner()
	i := in.GetOrMakeType("I")
	v := in.GetOrMakeType("V")

	p1 := in.GetOrMakeProto(v, []Type{i, i})
	p2 := in.GetOrMakeProto(v, []Type{i, i})
	assert.Equal(t, p1, p2)

	p3 := in.GetOrMakeProto(v, []Type{i})
	assert.NotEqual(t, p1, p3)
}
