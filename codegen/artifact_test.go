package codegen

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestLineTableSidecar(t *testing.T) {
	m := NewModule("side", Options{})
	if _, err := Function2[I64, I64, I64](m, "sum", func(a, b Value[I64]) error {
		Return[I64](Add[I64](a, b))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	art := finalize(t, m)

	var buf bytes.Buffer
	if err := EncodeLineTable(&buf, art.Lines); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeLineTable(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, art.Lines) {
		t.Fatalf("decoded %+v, want %+v", got, art.Lines)
	}
	if got.Source != "side.weave" {
		t.Fatalf("source = %q", got.Source)
	}
	if lines := got.Lines(); !reflect.DeepEqual(lines, []int{2}) {
		t.Fatalf("Lines() = %v", lines)
	}
}

func TestLineTableSchemaMismatch(t *testing.T) {
	raw, err := msgpack.Marshal(&LineTable{Schema: lineTableSchema + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeLineTable(bytes.NewReader(raw)); !errors.Is(err, ErrLineTableSchema) {
		t.Fatalf("err = %v, want ErrLineTableSchema", err)
	}
}
