package receiver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/pathsync/internal/http"
	"github.com/dropDatabas3/pathsync/internal/notify"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

// API monta el protocolo de sincronización sobre chi. El secreto compartido
// autentica al agente; vacío deshabilita el check (solo para desarrollo).
type API struct {
	svc    *Service
	secret string
}

// NewAPI arma la capa HTTP del receiver.
func NewAPI(svc *Service, secret string) *API {
	return &API{svc: svc, secret: secret}
}

// Register monta las rutas. /healthz queda afuera del grupo autenticado
// para que el balanceador pueda sondear sin token.
func (a *API) Register(r chi.Router) {
	r.Get("/healthz", a.health)
	r.Group(func(r chi.Router) {
		r.Use(a.requireToken)
		r.Post("/v1/sync/updates", a.pushUpdate)
		r.Get("/v1/sync/last-seen", a.lastSeen)
		r.Get("/v1/sync/image", a.image)
	})
}

// requireToken exige un Bearer JWT firmado con el secreto compartido.
func (a *API) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.secret == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "falta el bearer token")
			return
		}
		sub, err := notify.VerifyToken(a.secret, strings.TrimSpace(auth[len(prefix):]))
		if err != nil {
			logger.From(r.Context()).Warn("token rechazado", logger.Err(err))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "firma o expiración inválida")
			return
		}
		logger.From(r.Context()).Debug("agente autenticado", logger.String("subject", sub))
		next.ServeHTTP(w, r)
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"last_seen": a.svc.LastSeen(),
		"objects":   a.svc.Objects(),
	})
}

// pushUpdate aplica un envelope y devuelve el ack con el last seen
// resultante. Un envelope viejo también contesta 200: el descarte es parte
// del contrato, no un error del caller.
func (a *API) pushUpdate(w http.ResponseWriter, r *http.Request) {
	var u paths.Update
	if !httpx.ReadJSON(w, r, &u) {
		return
	}
	seen, err := a.svc.Apply(r.Context(), &u)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_update", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, notify.Ack{LastSeen: seen})
}

func (a *API) lastSeen(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, notify.Ack{LastSeen: a.svc.LastSeen()})
}

// imageResponse es el dump completo de la réplica para inspección.
type imageResponse struct {
	LastSeen int64               `json:"last_seen"`
	Objects  map[string][]string `json:"objects"`
}

func (a *API) image(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, imageResponse{
		LastSeen: a.svc.LastSeen(),
		Objects:  a.svc.Image(),
	})
}
