// Package catalog conecta el agente con el catálogo de metadatos: el Store
// enumera las entidades persistidas (crawl inicial) y el Feed entrega los
// cambios incrementales vía LISTEN/NOTIFY.
package catalog

import "context"

// Database es una base del catálogo con su location raíz.
type Database struct {
	Name     string
	Location string
}

// Table es una tabla del catálogo. El objeto de autorización asociado es
// "database.name".
type Table struct {
	Database string
	Name     string
	Location string
}

// Partition es una partición de una tabla. Sus paths cuelgan del objeto de
// la tabla, no tienen objeto propio.
type Partition struct {
	Database string
	Table    string
	Name     string
	Location string
}

// Object devuelve el nombre de objeto de autorización de la tabla.
func (t Table) Object() string { return t.Database + "." + t.Name }

// Object devuelve el objeto al que aportan los paths de la partición.
func (p Partition) Object() string { return p.Database + "." + p.Table }

// Store enumera el catálogo persistido. Las implementaciones deben ser
// seguras para uso concurrente: el crawler consulta varias databases en
// paralelo.
type Store interface {
	Databases(ctx context.Context) ([]Database, error)
	Tables(ctx context.Context, db string) ([]Table, error)
	Partitions(ctx context.Context, db, table string) ([]Partition, error)
}
