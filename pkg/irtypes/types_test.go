package irtypes

import "testing"

func TestEqualScalars(t *testing.T) {
	if !Equal(I32, I32) {
		t.Error("I32 should equal itself")
	}
	if Equal(I32, U32) {
		t.Error("I32 and U32 should not be equal")
	}
}

func TestEqualPtrAndArray(t *testing.T) {
	a := Ptr{Pointee: I32}
	b := Ptr{Pointee: I32}
	c := Ptr{Pointee: I64}
	if !Equal(a, b) {
		t.Error("pointers to the same pointee should be equal")
	}
	if Equal(a, c) {
		t.Error("pointers to different pointees should not be equal")
	}

	arr1 := Array{Elem: I8, Len: 4}
	arr2 := Array{Elem: I8, Len: 4}
	arr3 := Array{Elem: I8, Len: 5}
	if !Equal(arr1, arr2) {
		t.Error("arrays with the same element type and length should be equal")
	}
	if Equal(arr1, arr3) {
		t.Error("arrays with different lengths should not be equal")
	}
}

func TestEqualStructByIDOnly(t *testing.T) {
	// Two distinct *StructOrUnion values sharing an ID compare equal even
	// though their field lists differ, since struct identity is by ID
	// alone -- this is what lets a field be a pointer back to its own
	// enclosing struct without Equal recursing forever.
	a := NewStructOrUnion("Node", false, []Field{{Index: 0, Name: "value", Type: I32}})
	b := NewStructOrUnion("Node", false, nil)
	if !Equal(a, b) {
		t.Error("structs sharing an ID should be equal regardless of fields")
	}

	c := NewStructOrUnion("Other", false, nil)
	if Equal(a, c) {
		t.Error("structs with different IDs should not be equal")
	}
}

func TestEqualCyclicStructViaPointer(t *testing.T) {
	node := NewStructOrUnion("Node", false, nil)
	selfPtrField := Field{Index: 1, Name: "next", Type: Ptr{Pointee: node}}
	node2 := NewStructOrUnion("Node", false, []Field{
		{Index: 0, Name: "value", Type: I32},
		selfPtrField,
	})
	// This must terminate: Equal on the "next" field recurses into
	// Ptr{Pointee: Node} -> Node, which compares by ID only.
	if !Equal(node, node2) {
		t.Error("self-referential structs sharing an ID should be equal")
	}
}

func TestEqualFunction(t *testing.T) {
	f1 := Function{Return: I32, Params: []Type{I32, I32}}
	f2 := Function{Return: I32, Params: []Type{I32, I32}}
	f3 := Function{Return: I32, Params: []Type{I32}}
	f4 := Function{Return: I32, Params: []Type{I32, I32}, Variadic: true}

	if !Equal(f1, f2) {
		t.Error("functions with identical signatures should be equal")
	}
	if Equal(f1, f3) {
		t.Error("functions with different arities should not be equal")
	}
	if Equal(f1, f4) {
		t.Error("functions differing only in variadic-ness should not be equal")
	}
}

func TestIsIntegerFloatScalar(t *testing.T) {
	ints := []Type{Bool, I8, I16, I32, I64, U8, U16, U32, U64}
	for _, ty := range ints {
		if !IsInteger(ty) {
			t.Errorf("%v should be an integer", ty)
		}
	}
	if IsInteger(F32) {
		t.Error("F32 should not be an integer")
	}
	if !IsFloat(F64) {
		t.Error("F64 should be a float")
	}
	if !IsScalar(Ptr{Pointee: Void}) {
		t.Error("a pointer should be scalar")
	}
	st := NewStructOrUnion("S", false, nil)
	if IsScalar(st) {
		t.Error("a struct should not be scalar")
	}
}

func TestIsSigned(t *testing.T) {
	for _, ty := range []Type{I8, I16, I32, I64} {
		if !IsSigned(ty) {
			t.Errorf("%v should be signed", ty)
		}
	}
	for _, ty := range []Type{U8, U16, U32, U64, Bool} {
		if IsSigned(ty) {
			t.Errorf("%v should not be signed", ty)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("missing"); ok {
		t.Error("lookup of an unknown id should fail")
	}
	st := NewStructOrUnion("Point", false, []Field{
		{Index: 0, Name: "x", Type: I32},
		{Index: 1, Name: "y", Type: I32},
	})
	r.Insert("Point", st)
	got, ok := r.Lookup("Point")
	if !ok || got != st {
		t.Error("lookup should return the inserted struct")
	}
}

func TestFieldByName(t *testing.T) {
	st := NewStructOrUnion("Point", false, []Field{
		{Index: 0, Name: "x", Type: I32},
		{Index: 1, Name: "y", Type: I32},
	})
	f, ok := st.FieldByName("y")
	if !ok || f.Index != 1 {
		t.Errorf("FieldByName(y) = %+v, %v; want index 1", f, ok)
	}
	if _, ok := st.FieldByName("z"); ok {
		t.Error("FieldByName(z) should fail")
	}
}
