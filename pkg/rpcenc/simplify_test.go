package rpcenc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyStripsBookkeeping(t *testing.T) {
	in := map[string]any{
		"_NAME":       "Person",
		"_TYPE":       "{urn:example}Person",
		"id":          "p1",
		"{urn:x}misc": "retained-wildcard",
		"name":        "Ada",
	}
	out := Simplify(in)
	assert.Equal(t, map[string]any{"name": "Ada"}, out)
}

func TestSimplifyCollapsesAnonymousValue(t *testing.T) {
	in := map[string]any{"_NAME": "greeting", "id": "g1", "_": "hello"}
	assert.Equal(t, "hello", Simplify(in))
}

func TestSimplifyKeepsAnonymousValueAmongSiblings(t *testing.T) {
	in := map[string]any{"_": "hello", "lang": "en"}
	assert.Equal(t, map[string]any{"_": "hello", "lang": "en"}, Simplify(in))
}

func TestSimplifyMergesSingleKeySequence(t *testing.T) {
	in := []any{
		map[string]any{"item": 1},
		map[string]any{"item": 2},
		map[string]any{"item": 3},
	}
	assert.Equal(t, map[string]any{"item": []any{1, 2, 3}}, Simplify(in))
}

func TestSimplifyMixedSequenceUnchanged(t *testing.T) {
	in := []any{
		map[string]any{"item": 1},
		map[string]any{"other": 2},
	}
	out := Simplify(in).([]any)
	require.Len(t, out, 2)
	assert.Equal(t, map[string]any{"item": 1}, out[0])
}

func TestSimplifyNested(t *testing.T) {
	in := map[string]any{
		"_NAME": "Order",
		"lines": []any{
			map[string]any{"_NAME": "Line", "sku": "A", "qty": 1},
			map[string]any{"_NAME": "Line", "sku": "B", "qty": 2},
		},
	}
	out := Simplify(in).(map[string]any)
	lines := out["lines"].([]any)
	require.Len(t, lines, 2)
	assert.Equal(t, map[string]any{"sku": "A", "qty": 1}, lines[0])
}

func TestSimplifyIdempotent(t *testing.T) {
	in := map[string]any{
		"_NAME": "Person",
		"name":  "Ada",
		"tags":  []any{map[string]any{"t": "x"}, map[string]any{"t": "y"}},
	}
	once := Simplify(in)
	twice := Simplify(once)
	assert.Equal(t, once, twice)
}

func TestSimplifyTerminatesOnCycle(t *testing.T) {
	p1 := map[string]any{"_NAME": "Person", "name": "Ada"}
	p2 := map[string]any{"_NAME": "Person", "name": "Grace", "friend": p1}
	p1["friend"] = p2

	out := Simplify(p1).(map[string]any)
	assert.Equal(t, "Ada", out["name"])

	friend := out["friend"].(map[string]any)
	assert.Equal(t, "Grace", friend["name"])
	back := friend["friend"].(map[string]any)
	assert.Equal(t, reflect.ValueOf(out).Pointer(), reflect.ValueOf(back).Pointer())
}

func TestSimplifyTerminatesOnSequenceCycle(t *testing.T) {
	arr := make([]any, 1)
	arr[0] = arr

	out := Simplify(arr).([]any)
	require.Len(t, out, 1)
	inner := out[0].([]any)
	assert.Equal(t, reflect.ValueOf(out).Pointer(), reflect.ValueOf(inner).Pointer())
}

func TestSimplifyTerminatesOnMutualSequenceCycle(t *testing.T) {
	a := make([]any, 2)
	b := make([]any, 1)
	a[0] = "x"
	a[1] = b
	b[0] = a

	out := Simplify(a).([]any)
	assert.Equal(t, "x", out[0])
	back := out[1].([]any)[0].([]any)
	assert.Equal(t, reflect.ValueOf(out).Pointer(), reflect.ValueOf(back).Pointer())
}

func TestSimplifyScalarPassthrough(t *testing.T) {
	assert.Equal(t, 42, Simplify(42))
	assert.Nil(t, Simplify(nil))
}
