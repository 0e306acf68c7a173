package util

import (
	"net/url"
	"strings"
)

// MaskDSN devuelve una copia del DSN apta para logs: contraseña
// reemplazada por *** y usuario reducido a su primera letra. Acepta la
// forma URL (postgres://...) y la forma keyword=valor de libpq; si no
// reconoce el formato trunca, para no filtrar credenciales enteras.
func MaskDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if !strings.Contains(dsn, "://") {
		fields := strings.Fields(dsn)
		for i, f := range fields {
			if strings.HasPrefix(f, "password=") {
				fields[i] = "password=***"
			}
		}
		return strings.Join(fields, " ")
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		if len(dsn) <= 8 {
			return "***"
		}
		return dsn[:8] + "…"
	}
	// Se arma a mano: url.String() escaparía la máscara.
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		name := u.User.Username()
		if len(name) > 1 {
			name = name[:1] + "…"
		}
		b.WriteString(name)
		if _, has := u.User.Password(); has {
			b.WriteString(":***")
		}
		b.WriteString("@")
	}
	b.WriteString(u.Host)
	b.WriteString(u.Path)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}
