package paths

import (
	"sort"
	"strings"
)

// entry es un nodo del árbol de paths. Un entry con object != "" es el
// ancla de ese objeto de catálogo: el objeto "posee" ese subárbol.
type entry struct {
	segment  string
	parent   *entry
	children map[string]*entry
	object   string
}

func (e *entry) child(segment string, create bool) *entry {
	if c, ok := e.children[segment]; ok {
		return c
	}
	if !create {
		return nil
	}
	if e.children == nil {
		e.children = make(map[string]*entry)
	}
	c := &entry{segment: segment, parent: e}
	e.children[segment] = c
	return c
}

// path reconstruye los segmentos desde la raíz.
func (e *entry) path() []string {
	var segs []string
	for n := e; n != nil && n.parent != nil; n = n.parent {
		segs = append(segs, n.segment)
	}
	// invertir (se recolectó de hoja a raíz)
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs
}

// Tree es el Authorization Path Cache: mapping en memoria de objeto de
// catálogo a sus paths, con raíz en "/". Invariante: su contenido es la
// unión de los adds menos los deletes de todos los envelopes aplicados, en
// orden creciente de secuencia; el dueño debe serializar Apply.
type Tree struct {
	root    *entry
	objects map[string]map[*entry]struct{}
}

// NewTree crea un cache vacío.
func NewTree() *Tree {
	return &Tree{
		root:    &entry{segment: "/"},
		objects: make(map[string]map[*entry]struct{}),
	}
}

// AddObjectPath ancla un path al objeto, creando los nodos intermedios.
// Si otro objeto ya poseía exactamente ese nodo, el último gana: el catálogo
// no reusa locations entre objetos vivos.
func (t *Tree) AddObjectPath(object string, segs []string) {
	if object == "" || len(segs) == 0 {
		return
	}
	n := t.root
	for _, s := range segs {
		n = n.child(s, true)
	}
	if n.object != "" && n.object != object {
		t.unindex(n.object, n)
	}
	n.object = object
	set, ok := t.objects[object]
	if !ok {
		set = make(map[*entry]struct{})
		t.objects[object] = set
	}
	set[n] = struct{}{}
}

// RemoveObjectPath desancla un path del objeto y poda las ramas vacías.
// Si el nodo no existe o pertenece a otro objeto, no hace nada.
func (t *Tree) RemoveObjectPath(object string, segs []string) {
	n := t.root
	for _, s := range segs {
		if n = n.child(s, false); n == nil {
			return
		}
	}
	if n.object != object {
		return
	}
	n.object = ""
	t.unindex(object, n)
	t.prune(n)
}

// RemoveObject elimina todas las anclas del objeto (el delete-sentinel).
func (t *Tree) RemoveObject(object string) {
	for n := range t.objects[object] {
		n.object = ""
		t.prune(n)
	}
	delete(t.objects, object)
}

func (t *Tree) unindex(object string, n *entry) {
	if set, ok := t.objects[object]; ok {
		delete(set, n)
		if len(set) == 0 {
			delete(t.objects, object)
		}
	}
}

// prune borra hacia arriba los nodos que quedaron sin hijos y sin objeto.
func (t *Tree) prune(n *entry) {
	for n != nil && n.parent != nil && len(n.children) == 0 && n.object == "" {
		delete(n.parent.children, n.segment)
		n = n.parent
	}
}

// Apply aplica un envelope al cache. Para updates incrementales procesa los
// records en orden: primero los adds, después los deletes (el sentinel borra
// el subárbol completo del objeto y supersede a los deletes literales del
// record). Un envelope de imagen completa reemplaza el contenido entero del
// cache, no lo mergea; aplicarlo dos veces seguidas deja contenido idéntico.
func (t *Tree) Apply(u *Update) {
	if u.FullImage {
		t.root = &entry{segment: "/"}
		t.objects = make(map[string]map[*entry]struct{})
		for _, c := range u.Changes {
			for _, p := range c.AddPaths {
				t.AddObjectPath(c.Object, p)
			}
		}
		return
	}
	for _, c := range u.Changes {
		for _, p := range c.AddPaths {
			t.AddObjectPath(c.Object, p)
		}
		delAll := false
		for _, p := range c.DelPaths {
			if isAllPaths(p) {
				delAll = true
				break
			}
		}
		if delAll {
			t.RemoveObject(c.Object)
			continue
		}
		for _, p := range c.DelPaths {
			t.RemoveObjectPath(c.Object, p)
		}
	}
}

// FullImageUpdate materializa el contenido completo del cache como un
// envelope de imagen completa. La reconciliación lo estampa con el
// lastSent vigente: nunca avanza la secuencia. Salida determinística
// (objetos y paths ordenados) para que dos dumps del mismo estado sean
// comparables byte a byte.
func (t *Tree) FullImageUpdate(seq int64) *Update {
	u := NewUpdate(seq, true)
	names := make([]string, 0, len(t.objects))
	for name := range t.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := u.ChangeFor(name)
		for _, p := range t.sortedPaths(name) {
			c.Add(p)
		}
	}
	return u
}

// PathsFor devuelve los paths anclados al objeto, ordenados. Nil si el
// objeto no tiene entradas.
func (t *Tree) PathsFor(object string) [][]string {
	if len(t.objects[object]) == 0 {
		return nil
	}
	return t.sortedPaths(object)
}

func (t *Tree) sortedPaths(object string) [][]string {
	out := make([][]string, 0, len(t.objects[object]))
	for n := range t.objects[object] {
		out = append(out, n.path())
	}
	sort.Slice(out, func(i, j int) bool {
		return joinSegs(out[i]) < joinSegs(out[j])
	})
	return out
}

// Len devuelve la cantidad de objetos con al menos un path.
func (t *Tree) Len() int {
	return len(t.objects)
}

// Dump devuelve el mapping objeto -> paths ("/a/b") para debug y para el
// endpoint de imagen del receiver.
func (t *Tree) Dump() map[string][]string {
	out := make(map[string][]string, len(t.objects))
	for name := range t.objects {
		paths := t.sortedPaths(name)
		joined := make([]string, len(paths))
		for i, p := range paths {
			joined[i] = joinSegs(p)
		}
		out[name] = joined
	}
	return out
}

func joinSegs(segs []string) string {
	return "/" + strings.Join(segs, "/")
}
