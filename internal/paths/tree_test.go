package paths

import (
	"reflect"
	"testing"
)

func TestTree_AddAndRemovePath(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("db1.tbl1", []string{"a", "b"})
	tr.AddObjectPath("db1.tbl1", []string{"a", "c"})

	got := tr.Dump()["db1.tbl1"]
	want := []string{"/a/b", "/a/c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}

	tr.RemoveObjectPath("db1.tbl1", []string{"a", "b"})
	got = tr.Dump()["db1.tbl1"]
	if !reflect.DeepEqual(got, []string{"/a/c"}) {
		t.Fatalf("after remove: %v", got)
	}

	// borrar el último path elimina el objeto del índice y poda las ramas
	tr.RemoveObjectPath("db1.tbl1", []string{"a", "c"})
	if tr.Len() != 0 {
		t.Fatalf("tree should be empty, has %d objects", tr.Len())
	}
	if len(tr.root.children) != 0 {
		t.Fatalf("empty branches not pruned: %v", tr.root.children)
	}
}

func TestTree_RemovePathWrongOwnerIsNoop(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("db1", []string{"data", "db1"})
	tr.RemoveObjectPath("otro", []string{"data", "db1"})
	if tr.PathsFor("db1") == nil {
		t.Fatal("path removed by non-owner")
	}
	tr.RemoveObjectPath("db1", []string{"data", "nope"})
	if tr.PathsFor("db1") == nil {
		t.Fatal("remove of unknown path should be a no-op")
	}
}

func TestTree_LastOwnerWins(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("viejo", []string{"shared", "loc"})
	tr.AddObjectPath("nuevo", []string{"shared", "loc"})
	if got := tr.PathsFor("viejo"); got != nil {
		t.Fatalf("old owner kept the path: %v", got)
	}
	if got := tr.Dump()["nuevo"]; !reflect.DeepEqual(got, []string{"/shared/loc"}) {
		t.Fatalf("new owner missing the path: %v", got)
	}
}

// Un remove-all de "db1" con hijo "tbl1" borra las entradas de ambos.
func TestTree_ApplyRemoveAllWithChildren(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("db1", []string{"w", "db1"})
	tr.AddObjectPath("db1.tbl1", []string{"a", "b"})

	u := NewUpdate(10, false)
	u.ChangeFor("db1.tbl1").DelAll()
	u.ChangeFor("db1").DelAll()
	tr.Apply(u)

	if tr.PathsFor("db1") != nil || tr.PathsFor("db1.tbl1") != nil {
		t.Fatalf("objects survived remove-all: %v", tr.Dump())
	}
	if tr.Len() != 0 {
		t.Fatalf("tree not empty: %v", tr.Dump())
	}
}

func TestTree_ApplySentinelSupersedesLiterals(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("db.t", []string{"a"})
	tr.AddObjectPath("db.t", []string{"b"})

	u := NewUpdate(11, false)
	u.ChangeFor("db.t").Del([]string{"a"}).DelAll()
	tr.Apply(u)

	if tr.Len() != 0 {
		t.Fatalf("sentinel did not remove everything: %v", tr.Dump())
	}
}

// Rename: un solo envelope con add del nombre nuevo y delete del viejo;
// ambos efectos visibles tras un único Apply.
func TestTree_ApplyRename(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("t1", []string{"x"})

	u := NewUpdate(12, false)
	u.ChangeFor("t2").Add([]string{"y"})
	u.ChangeFor("t1").Del([]string{"x"})
	tr.Apply(u)

	if tr.PathsFor("t1") != nil {
		t.Fatalf("old name still present: %v", tr.Dump())
	}
	if got := tr.Dump()["t2"]; !reflect.DeepEqual(got, []string{"/y"}) {
		t.Fatalf("new name missing: %v", tr.Dump())
	}
}

func TestTree_ApplyAddsBeforeDeletesPerRecord(t *testing.T) {
	// dentro de un record los adds se aplican antes que los deletes:
	// add /a + del /a en el mismo record deja el path afuera
	tr := NewTree()
	u := NewUpdate(13, false)
	u.ChangeFor("db").Add([]string{"a"}).Del([]string{"a"})
	tr.Apply(u)
	if tr.Len() != 0 {
		t.Fatalf("del after add should win: %v", tr.Dump())
	}
}

func TestTree_FullImageReplacesContent(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("fantasma", []string{"stale"})

	img := NewUpdate(20, true)
	img.ChangeFor("db1").Add([]string{"w", "db1"})
	img.ChangeFor("db1.t").Add([]string{"w", "db1", "t"})
	tr.Apply(img)

	if tr.PathsFor("fantasma") != nil {
		t.Fatal("full image must replace, not merge")
	}
	want := map[string][]string{
		"db1":   {"/w/db1"},
		"db1.t": {"/w/db1/t"},
	}
	if got := tr.Dump(); !reflect.DeepEqual(got, want) {
		t.Fatalf("dump = %v, want %v", got, want)
	}
}

func TestTree_FullImageIdempotent(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("db", []string{"w", "db"})
	tr.AddObjectPath("db.t", []string{"w", "db", "t"})

	img := tr.FullImageUpdate(42)
	if !img.FullImage || img.Seq != 42 {
		t.Fatalf("bad image header: seq=%d full=%v", img.Seq, img.FullImage)
	}

	tr.Apply(img)
	first := tr.Dump()
	tr.Apply(img)
	second := tr.Dump()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("apply twice diverged: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first, map[string][]string{
		"db":   {"/w/db"},
		"db.t": {"/w/db/t"},
	}) {
		t.Fatalf("unexpected content: %v", first)
	}
}

func TestTree_FullImageUpdateDeterministic(t *testing.T) {
	tr := NewTree()
	tr.AddObjectPath("b", []string{"2"})
	tr.AddObjectPath("a", []string{"1"})
	tr.AddObjectPath("a", []string{"0"})

	img := tr.FullImageUpdate(5)
	if img.Changes[0].Object != "a" || img.Changes[1].Object != "b" {
		t.Fatalf("objects not sorted: %v, %v", img.Changes[0].Object, img.Changes[1].Object)
	}
	if !reflect.DeepEqual(img.Changes[0].AddPaths, [][]string{{"0"}, {"1"}}) {
		t.Fatalf("paths not sorted: %v", img.Changes[0].AddPaths)
	}
}
