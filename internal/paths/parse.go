package paths

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Errores de normalización. El caller (controller) descarta el cambio
// puntual que los produjo; el resto del envelope sigue.
var (
	// ErrUnsupportedScheme: el path vive fuera del filesystem sincronizado
	// (scheme no permitido). No es un path malformado: simplemente no nos
	// concierne.
	ErrUnsupportedScheme = errors.New("paths: unsupported scheme")

	// ErrMalformedPath: entrada vacía, relativa o sin segmentos útiles.
	ErrMalformedPath = errors.New("paths: malformed path")
)

// defaultSchemes son los schemes de URI aceptados cuando el caller no pasa
// una lista propia.
var defaultSchemes = []string{"hdfs"}

// ParsePath normaliza un path del catálogo a su lista de segmentos.
// Acepta paths absolutos ("/a/b") y URIs con authority ("hdfs://nn:8020/a/b")
// cuyo scheme esté en la lista permitida. Segmentos vacíos se colapsan;
// "." y ".." se rechazan.
func ParsePath(raw string, schemes ...string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedPath)
	}
	p := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPath, err)
		}
		if len(schemes) == 0 {
			schemes = defaultSchemes
		}
		ok := false
		for _, s := range schemes {
			if strings.EqualFold(u.Scheme, s) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
		}
		p = u.Path
	}
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("%w: not absolute: %q", ErrMalformedPath, raw)
	}
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		switch s {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("%w: relative segment in %q", ErrMalformedPath, raw)
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no segments in %q", ErrMalformedPath, raw)
	}
	return segs, nil
}
