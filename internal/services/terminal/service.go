package terminal

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sayanm085/shotops-dashboard/internal/api"
)

// AgentClients provides API clients for registered agents
type AgentClients interface {
	ClientFor(agentID string) (*api.Client, error)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Service relays terminal sessions between the dashboard and an agent.
// Frames pass through untouched in both directions; the relay never
// inspects or rewrites them.
type Service struct {
	agents AgentClients
}

// NewService creates a new terminal relay service
func NewService(agents AgentClients) *Service {
	return &Service{agents: agents}
}

// Relay bridges the incoming connection to the agent's terminal
// endpoint. The agent side is dialed first so connection failures can
// still be reported as plain HTTP errors.
func (s *Service) Relay(w http.ResponseWriter, r *http.Request, agentID string) {
	client, err := s.agents.ClientFor(agentID)
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	header := http.Header{}
	header.Set("X-Api-Token", client.Token())

	agentConn, resp, err := websocket.DefaultDialer.Dial(client.WebSocketURL("api/terminal"), header)
	if err != nil {
		status := http.StatusBadGateway
		if resp != nil {
			status = resp.StatusCode
		}
		log.Printf("Terminal dial to agent %s failed: %v", agentID, err)
		http.Error(w, "failed to reach agent terminal", status)
		return
	}
	defer agentConn.Close()

	browserConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer browserConn.Close()

	log.Printf("Terminal session opened for agent %s", agentID)
	defer log.Printf("Terminal session closed for agent %s", agentID)

	// One pump per direction; the first error tears the session down
	// via the deferred closes.
	errc := make(chan error, 2)
	go pump(agentConn, browserConn, errc)
	go pump(browserConn, agentConn, errc)
	<-errc
}

// pump copies frames from src to dst until either side fails
func pump(dst, src *websocket.Conn, errc chan<- error) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			errc <- err
			return
		}
	}
}
