package orderedindex

import "testing"

func TestIndex_FIFOOrder(t *testing.T) {
	var idx Index[int, string]
	idx.Push(1, "a")
	idx.Push(2, "b")
	idx.Push(3, "c")

	if idx.Len() != 3 {
		t.Fatalf("expected length 3, got %d", idx.Len())
	}

	v, ok := idx.Shift()
	if !ok || v != "a" {
		t.Fatalf("expected a, got %v, %v", v, ok)
	}
	v, ok = idx.Shift()
	if !ok || v != "b" {
		t.Fatalf("expected b, got %v, %v", v, ok)
	}
	v, ok = idx.Shift()
	if !ok || v != "c" {
		t.Fatalf("expected c, got %v, %v", v, ok)
	}
	if _, ok := idx.Shift(); ok {
		t.Fatal("expected empty index")
	}
}

func TestIndex_PushUpsertsInPlace(t *testing.T) {
	var idx Index[int, string]
	idx.Push(1, "a")
	idx.Push(2, "b")
	idx.Push(1, "a-updated")

	if idx.Len() != 2 {
		t.Fatalf("expected length 2, got %d", idx.Len())
	}

	first, ok := idx.GetFirst()
	if !ok || first != "a-updated" {
		t.Fatalf("expected upsert to keep position but update value, got %v", first)
	}
}

func TestIndex_RemoveById(t *testing.T) {
	var idx Index[int, string]
	idx.Push(1, "a")
	idx.Push(2, "b")
	idx.Push(3, "c")

	if !idx.Remove(2) {
		t.Fatal("expected Remove(2) to succeed")
	}
	if idx.Remove(2) {
		t.Fatal("expected second Remove(2) to fail")
	}
	if idx.Has(2) {
		t.Fatal("expected id 2 to be gone")
	}

	v, ok := idx.Shift()
	if !ok || v != "a" {
		t.Fatalf("expected a, got %v", v)
	}
	v, ok = idx.Shift()
	if !ok || v != "c" {
		t.Fatalf("expected c (b removed), got %v", v)
	}
}

func TestIndex_GetFirstGetLast(t *testing.T) {
	var idx Index[int, string]
	if _, ok := idx.GetFirst(); ok {
		t.Fatal("expected empty index to have no first")
	}
	if _, ok := idx.GetLast(); ok {
		t.Fatal("expected empty index to have no last")
	}

	idx.Push(1, "a")
	idx.Push(2, "b")
	idx.Push(3, "c")

	first, _ := idx.GetFirst()
	last, _ := idx.GetLast()
	if first != "a" || last != "c" {
		t.Fatalf("expected first=a last=c, got first=%v last=%v", first, last)
	}
}

func TestIndex_Range(t *testing.T) {
	var idx Index[int, string]
	idx.Push(1, "a")
	idx.Push(2, "b")
	idx.Push(3, "c")

	var seen []string
	idx.Range(func(id int, v string) bool {
		seen = append(seen, v)
		return id != 2
	})

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("expected Range to stop after id 2, got %v", seen)
	}
}
