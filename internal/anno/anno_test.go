package anno

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/ir"
)

func TestStringElementRoundTrip(t *testing.T) {
	in := ir.NewInterner()
	annoType := in.GetOrMakeType("LSignature;")
	value := in.GetOrMakeString("(I)V")

	set := &ir.AnnotationSet{Annotations: []ir.Annotation{{
		Type:       annoType,
		Visibility: int(VisibilitySystem),
		Elements: map[string]ir.EncodedValue{
			"value": {Kind: ir.EncodedString, Str: value},
		},
	}}}

	a, ok := set.Find(annoType)
	require.True(t, ok)

	s, ok := StringElement(in, a, "value")
	require.True(t, ok)
	assert.Equal(t, "(I)V", s)

	assert.True(t, HasVisibility(set, annoType, VisibilitySystem))
	assert.False(t, HasVisibility(set, annoType, VisibilityRuntime))
}

func TestIntAndArrayElements(t *testing.T) {
	in := ir.NewInterner()
	annoType := in.GetOrMakeType("LThrows;")
	excType := in.GetOrMakeType("Ljava/lang/Exception;")

	set := &ir.AnnotationSet{Annotations: []ir.Annotation{{
		Type: annoType,
		Elements: map[string]ir.EncodedValue{
			"code": {Kind: ir.EncodedInt, Int: 42},
			"value": {Kind: ir.EncodedArray, Array: []ir.EncodedValue{
				{Kind: ir.EncodedType, Cls: excType},
			}},
		},
	}}}

	a, _ := set.Find(annoType)
	code, ok := IntElement(a, "code")
	require.True(t, ok)
	assert.EqualValues(t, 42, code)

	arr, ok := ArrayElement(a, "value")
	require.True(t, ok)
	require.Len(t, arr, 1)
	assert.Equal(t, excType, arr[0].Cls)
}

func TestMissingAnnotationNotFound(t *testing.T) {
	in := ir.NewInterner()
	set := &ir.AnnotationSet{}
	_, ok := set.Find(in.GetOrMakeType("LMissing;"))
	assert.False(t, ok)
}
