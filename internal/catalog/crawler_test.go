package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dropDatabas3/pathsync/internal/paths"
)

// fakeStore sirve un catálogo armado en memoria.
type fakeStore struct {
	dbs       []Database
	tables    map[string][]Table
	parts     map[string][]Partition
	tablesErr error
	partsErr  error
}

func (f *fakeStore) Databases(ctx context.Context) ([]Database, error) {
	return f.dbs, nil
}

func (f *fakeStore) Tables(ctx context.Context, db string) ([]Table, error) {
	if f.tablesErr != nil {
		return nil, f.tablesErr
	}
	return f.tables[db], nil
}

func (f *fakeStore) Partitions(ctx context.Context, db, table string) ([]Partition, error) {
	if f.partsErr != nil {
		return nil, f.partsErr
	}
	return f.parts[db+"."+table], nil
}

func testCrawler(t *testing.T, store Store) *Crawler {
	t.Helper()
	c, err := NewCrawler(CrawlerConfig{
		Store: store,
		Parse: func(raw string) ([]string, error) { return paths.ParsePath(raw) },
	})
	if err != nil {
		t.Fatalf("NewCrawler: %v", err)
	}
	return c
}

func TestCrawlerBuildsSnapshot(t *testing.T) {
	store := &fakeStore{
		dbs: []Database{
			{Name: "db1", Location: "hdfs://nn:8020/warehouse/db1"},
			{Name: "db2", Location: "/warehouse/db2"},
		},
		tables: map[string][]Table{
			"db1": {
				{Database: "db1", Name: "t1", Location: "/warehouse/db1/t1"},
				{Database: "db1", Name: "t2", Location: "/warehouse/db1/t2"},
			},
		},
		parts: map[string][]Partition{
			"db1.t1": {
				{Database: "db1", Table: "t1", Name: "p=1", Location: "/warehouse/db1/t1/p1"},
				{Database: "db1", Table: "t1", Name: "p=2", Location: "/ext/db1/t1/p2"},
			},
		},
	}

	tree, err := testCrawler(t, store).BuildSnapshot(context.Background())
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}

	got := tree.Dump()
	want := map[string][]string{
		"db1":    {"/warehouse/db1"},
		"db2":    {"/warehouse/db2"},
		"db1.t1": {"/ext/db1/t1/p2", "/warehouse/db1/t1", "/warehouse/db1/t1/p1"},
		"db1.t2": {"/warehouse/db1/t2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot = %v, esperaba %v", got, want)
	}
}

func TestCrawlerSkipsUnparsableLocations(t *testing.T) {
	store := &fakeStore{
		dbs: []Database{{Name: "db1", Location: "s3a://bucket/db1"}},
		tables: map[string][]Table{
			"db1": {{Database: "db1", Name: "t1", Location: "/warehouse/db1/t1"}},
		},
	}

	tree, err := testCrawler(t, store).BuildSnapshot(context.Background())
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if tree.PathsFor("db1") != nil {
		t.Fatalf("db1 no debería tener paths (location con scheme ajeno)")
	}
	if got := tree.PathsFor("db1.t1"); len(got) != 1 {
		t.Fatalf("db1.t1 paths = %v, esperaba uno", got)
	}
}

func TestCrawlerEnumerationErrorAborts(t *testing.T) {
	sentinel := errors.New("db caída")
	store := &fakeStore{
		dbs:       []Database{{Name: "db1", Location: "/warehouse/db1"}},
		tablesErr: sentinel,
	}

	if _, err := testCrawler(t, store).BuildSnapshot(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("BuildSnapshot = %v, esperaba el error de enumeración", err)
	}
}

func TestCrawlerPartitionErrorAborts(t *testing.T) {
	sentinel := errors.New("particiones caídas")
	store := &fakeStore{
		dbs: []Database{{Name: "db1", Location: "/warehouse/db1"}},
		tables: map[string][]Table{
			"db1": {{Database: "db1", Name: "t1", Location: "/warehouse/db1/t1"}},
		},
		partsErr: sentinel,
	}

	if _, err := testCrawler(t, store).BuildSnapshot(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("BuildSnapshot = %v, esperaba el error de particiones", err)
	}
}

func TestCrawlerConfigValidation(t *testing.T) {
	parse := func(raw string) ([]string, error) { return paths.ParsePath(raw) }
	if _, err := NewCrawler(CrawlerConfig{Parse: parse}); err == nil {
		t.Fatalf("NewCrawler sin Store debería fallar")
	}
	if _, err := NewCrawler(CrawlerConfig{Store: &fakeStore{}}); err == nil {
		t.Fatalf("NewCrawler sin Parse debería fallar")
	}
}
