package envutil

import "testing"

func TestStringTrims(t *testing.T) {
	t.Setenv("X_STR", "  v  ")
	if got := String("X_STR", "d"); got != "v" {
		t.Fatalf("String: want=v got=%q", got)
	}
	t.Setenv("X_STR", "   ")
	if got := String("X_STR", "d"); got != "d" {
		t.Fatalf("String(blank): want=d got=%q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("X_BOOL", "on")
	if !Bool("X_BOOL", false) {
		t.Fatalf("Bool(on): want=true")
	}
	t.Setenv("X_BOOL", "maybe")
	if Bool("X_BOOL", false) {
		t.Fatalf("Bool(maybe): want default false")
	}
}

func TestKeyValues(t *testing.T) {
	t.Setenv("X_KV", "a=1, b = 2 ,broken,=x")
	got := KeyValues("X_KV")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("KeyValues: got=%v", got)
	}
	t.Setenv("X_KV", "")
	if KeyValues("X_KV") != nil {
		t.Fatalf("KeyValues(empty): want nil")
	}
}
