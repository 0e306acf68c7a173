// pathsync es la CLI de operación: consulta el estado del agente, fuerza un
// resync manual y permite inspeccionar la réplica del receiver.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/pathsync/internal/notify"
)

type client struct {
	AgentURL    string
	ReceiverURL string
	Secret      string
	OutFormat   string // "json" | "text"
	HTTP        *http.Client
}

// doAgent pega contra la superficie administrativa del agente (sin auth:
// se asume loopback o red interna).
func (c *client) doAgent(method, path string) (int, []byte, error) {
	return c.do(method, strings.TrimRight(c.AgentURL, "/")+path, "")
}

// doReceiver pega contra el receiver firmando el JWT de servicio igual que
// el agente.
func (c *client) doReceiver(method, path string) (int, []byte, error) {
	tok := ""
	if c.Secret != "" {
		t, err := notify.MintToken(c.Secret, "pathsync-cli")
		if err != nil {
			return 0, nil, err
		}
		tok = t
	}
	return c.do(method, strings.TrimRight(c.ReceiverURL, "/")+path, tok)
}

func (c *client) do(method, url, bearer string) (int, []byte, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		agentURL    = envOr("PATHSYNC_AGENT_URL", "http://localhost:8084")
		receiverURL = envOr("PATHSYNC_RECEIVER_URL", "http://localhost:8085")
		secret      = envOr("PATHSYNC_SECRET", "")
		out         = envOr("PATHSYNC_OUT", "text")
		timeout     = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "pathsync",
		Short: "CLI de operación del agente de sincronización de paths",
	}

	root.PersistentFlags().StringVar(&agentURL, "agent-url", agentURL, "URL de la superficie admin del agente (env PATHSYNC_AGENT_URL)")
	root.PersistentFlags().StringVar(&receiverURL, "receiver-url", receiverURL, "URL del receiver (env PATHSYNC_RECEIVER_URL)")
	root.PersistentFlags().StringVar(&secret, "secret", secret, "Secreto compartido para firmar el token hacia el receiver (env PATHSYNC_SECRET)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.AgentURL = agentURL
		cl.ReceiverURL = receiverURL
		cl.Secret = secret
		cl.OutFormat = out
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Estado del agente: fase, last sent, cola, sync confirmado",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.doAgent("GET", "/v1/admin/status")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Dump del cache local de paths del agente (objeto -> paths)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.doAgent("GET", "/v1/admin/image")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("image falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	resyncCmd := &cobra.Command{
		Use:   "resync",
		Short: "Fuerza una ronda de reconciliación (reenvía imagen completa si hay divergencia)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.doAgent("POST", "/v1/admin/resync")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("resync falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	// grupo remote: consultas directas al receiver
	remoteCmd := &cobra.Command{
		Use:   "remote",
		Short: "Consultas al servicio de autorización (receiver)",
	}

	lastSeenCmd := &cobra.Command{
		Use:   "last-seen",
		Short: "Último seq que el receiver reconoció haber aplicado",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.doReceiver("GET", "/v1/sync/last-seen")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("last-seen falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	remoteImageCmd := &cobra.Command{
		Use:   "image",
		Short: "Dump de la réplica del receiver (objeto -> paths)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.doReceiver("GET", "/v1/sync/image")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("image falló: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	remoteCmd.AddCommand(lastSeenCmd)
	remoteCmd.AddCommand(remoteImageCmd)

	root.AddCommand(statusCmd)
	root.AddCommand(imageCmd)
	root.AddCommand(resyncCmd)
	root.AddCommand(remoteCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
