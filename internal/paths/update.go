// Package paths define el modelo de datos del protocolo de sincronización:
// el envelope numerado de cambios (Update), el cache local de paths por
// objeto de catálogo (Tree) y la normalización de paths (ParsePath).
//
// Las estructuras de este paquete no llevan locks propios: el dueño
// serializa el acceso (el controller con su lock, el receiver con un
// RWMutex).
package paths

import "sync/atomic"

// AllPaths es el valor reservado de delete que significa "todos los paths
// bajo este objeto". En un del set reemplaza a cualquier lista literal.
const AllPaths = "__ALL_PATHS__"

// SeqBase es la semilla del contador de secuencia. Arranca por encima de
// cero: un proceso recién levantado nunca coincide con un remoto que no vio
// ningún update, y la primera reconciliación dispara el resync de imagen
// completa.
const SeqBase = 5

// Change agrupa los cambios de paths de UN objeto de catálogo dentro de un
// Update. AddPaths y DelPaths son listas de segmentos ("/a/b" => ["a","b"]).
type Change struct {
	Object   string     `json:"object"`
	AddPaths [][]string `json:"add_paths,omitempty"`
	DelPaths [][]string `json:"del_paths,omitempty"`
}

// Add agrega un path al add set del record.
func (c *Change) Add(segs []string) *Change {
	c.AddPaths = append(c.AddPaths, segs)
	return c
}

// Del agrega un path al del set del record.
func (c *Change) Del(segs []string) *Change {
	c.DelPaths = append(c.DelPaths, segs)
	return c
}

// DelAll marca el delete-sentinel: borrar todos los paths del objeto.
// Supersede cualquier delete literal del mismo record.
func (c *Change) DelAll() *Change {
	c.DelPaths = append(c.DelPaths, []string{AllPaths})
	return c
}

// isAllPaths reconoce el sentinel dentro de un del set.
func isAllPaths(segs []string) bool {
	return len(segs) == 1 && segs[0] == AllPaths
}

// Update es el envelope inmutable y numerado que describe los paths
// agregados/borrados por objeto para UN evento lógico de catálogo.
// FullImage=true significa que el envelope reemplaza (no mergea) el estado
// completo de su alcance; solo lo genera la reconciliación, nunca un evento
// incremental.
type Update struct {
	Seq       int64     `json:"seq"`
	FullImage bool      `json:"full_image,omitempty"`
	Changes   []*Change `json:"changes"`

	// index por objeto; se reconstruye lazy después de un unmarshal.
	index map[string]*Change
}

// NewUpdate crea un envelope vacío con el número de secuencia dado.
func NewUpdate(seq int64, fullImage bool) *Update {
	return &Update{Seq: seq, FullImage: fullImage}
}

// ChangeFor devuelve el record de cambios del objeto, creándolo si no
// existe. Llamadas repetidas para el mismo objeto dentro de un envelope
// acumulan sobre el mismo record (una entrada por objeto por envelope).
func (u *Update) ChangeFor(object string) *Change {
	if u.index == nil {
		u.index = make(map[string]*Change, len(u.Changes)+1)
		for _, c := range u.Changes {
			u.index[c.Object] = c
		}
	}
	if c, ok := u.index[object]; ok {
		return c
	}
	c := &Change{Object: object}
	u.Changes = append(u.Changes, c)
	u.index[object] = c
	return c
}

// Empty informa si el envelope no terminó conteniendo ningún cambio
// (por ejemplo porque la normalización rechazó todos los paths del evento).
func (u *Update) Empty() bool {
	for _, c := range u.Changes {
		if len(c.AddPaths) > 0 || len(c.DelPaths) > 0 {
			return false
		}
	}
	return true
}

// Sequence es el contador monótono de envelopes. Es estado del controller,
// no una global de proceso: dos instancias pueden convivir (tests).
type Sequence struct {
	n atomic.Int64
}

// NewSequence crea un contador sembrado en start; el primer Next devuelve
// start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

// Next incrementa y devuelve el siguiente número de secuencia.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current devuelve el último número emitido sin avanzar el contador.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}
