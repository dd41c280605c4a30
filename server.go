package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/services/agents"
	"github.com/sayanm085/shotops-dashboard/internal/services/apps"
	"github.com/sayanm085/shotops-dashboard/internal/services/databrowser"
	"github.com/sayanm085/shotops-dashboard/internal/services/operations"
	"github.com/sayanm085/shotops-dashboard/internal/services/scheduler"
)

// Routes builds the HTTP handler exposing the dashboard API
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.healthzHandler)

	mux.HandleFunc("/api/agents", a.agentsHandler)
	mux.HandleFunc("/api/agents/test", a.agentTestHandler)
	mux.HandleFunc("/api/agents/refresh", a.agentRefreshHandler)
	mux.HandleFunc("/api/agents/", a.agentHandler)

	mux.HandleFunc("/api/apps", a.appsHandler)
	mux.HandleFunc("/api/apps/", a.appHandler)

	mux.HandleFunc("/api/databases", a.databasesHandler)
	mux.HandleFunc("/api/databases/", a.databaseHandler)

	mux.HandleFunc("/api/jobs", a.jobsHandler)
	mux.HandleFunc("/api/jobs/", a.jobHandler)

	mux.HandleFunc("/ws/terminal/", a.terminalHandler)

	return mux
}

func (a *App) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (a *App) agentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		list, err := a.agentsService.List()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, list)
	case "POST":
		var req agents.UpsertAgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}
		agent, err := a.agentsService.Create(req)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, agent)
	default:
		http.Error(w, "Method not allowed", 405)
	}
}

func (a *App) agentTestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", 405)
		return
	}
	var req agents.TestAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", 400)
		return
	}
	writeJSON(w, 200, a.agentsService.TestConnection(req))
}

func (a *App) agentRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", 405)
		return
	}
	summary, err := a.agentsService.RefreshStatus()
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, summary)
}

func (a *App) agentHandler(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/agents/")
	switch {
	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case "GET":
			agent, err := a.agentsService.Get(id)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, agent)
		case "PUT":
			var req agents.UpsertAgentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", 400)
				return
			}
			agent, err := a.agentsService.Update(id, req)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, agent)
		case "DELETE":
			if err := a.agentsService.Delete(id); err != nil {
				lookupError(w, err)
				return
			}
			w.WriteHeader(204)
		default:
			http.Error(w, "Method not allowed", 405)
		}
	case len(parts) == 2 && parts[1] == "system":
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		info, err := a.agentsService.SystemInfo(parts[0])
		if err != nil {
			lookupError(w, err)
			return
		}
		writeJSON(w, 200, info)
	default:
		http.Error(w, "Not found", 404)
	}
}

func (a *App) appsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		list, err := a.appsService.List(r.URL.Query().Get("agent_id"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, list)
	case "POST":
		var req apps.UpsertAppRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}
		app, err := a.appsService.Create(req)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, app)
	default:
		http.Error(w, "Method not allowed", 405)
	}
}

func (a *App) appHandler(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/apps/")
	switch {
	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case "GET":
			app, err := a.appsService.Get(id)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, app)
		case "PUT":
			var req apps.UpsertAppRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", 400)
				return
			}
			app, err := a.appsService.Update(id, req)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, app)
		case "DELETE":
			snap, err := a.appsService.Delete(id)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, snap)
		default:
			http.Error(w, "Method not allowed", 405)
		}
	case len(parts) == 2 && parts[1] == "progress":
		switch r.Method {
		case "GET":
			snap, err := a.appsService.GetOperationProgress(parts[0])
			if err != nil {
				http.Error(w, err.Error(), 404)
				return
			}
			writeJSON(w, 200, snap)
		case "DELETE":
			a.appsService.CloseOperation(parts[0])
			w.WriteHeader(204)
		default:
			http.Error(w, "Method not allowed", 405)
		}
	case len(parts) == 2:
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		a.appActionHandler(w, parts[0], parts[1])
	default:
		http.Error(w, "Not found", 404)
	}
}

// appActionHandler dispatches the lifecycle actions that start a
// tracked operation and responds with its first progress snapshot
func (a *App) appActionHandler(w http.ResponseWriter, id, action string) {
	var start func(string) (*operations.Snapshot, error)
	switch action {
	case "deploy":
		start = a.appsService.Deploy
	case "stop":
		start = a.appsService.Stop
	case "restart":
		start = a.appsService.Restart
	default:
		http.Error(w, "Not found", 404)
		return
	}

	snap, err := start(id)
	if err != nil {
		lookupError(w, err)
		return
	}
	writeJSON(w, 200, snap)
}

func (a *App) databasesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		list, err := a.databaseService.List(r.URL.Query().Get("agent_id"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, list)
	case "POST":
		var req databrowser.UpsertDatabaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}
		db, err := a.databaseService.Create(req)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 201, db)
	default:
		http.Error(w, "Method not allowed", 405)
	}
}

func (a *App) databaseHandler(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/databases/")
	switch {
	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case "GET":
			db, err := a.databaseService.Get(id)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, db)
		case "PUT":
			var req databrowser.UpsertDatabaseRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", 400)
				return
			}
			db, err := a.databaseService.Update(id, req)
			if err != nil {
				lookupError(w, err)
				return
			}
			writeJSON(w, 200, db)
		case "DELETE":
			if err := a.databaseService.Delete(id); err != nil {
				lookupError(w, err)
				return
			}
			w.WriteHeader(204)
		default:
			http.Error(w, "Method not allowed", 405)
		}
	case len(parts) == 2:
		a.databaseActionHandler(w, r, parts[0], parts[1])
	default:
		http.Error(w, "Not found", 404)
	}
}

func (a *App) databaseActionHandler(w http.ResponseWriter, r *http.Request, id, action string) {
	switch action {
	case "ping":
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		if err := a.databaseService.Ping(id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "Not found", 404)
				return
			}
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "online"})
	case "tables":
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		tables, err := a.databaseService.ListTables(id)
		if err != nil {
			lookupError(w, err)
			return
		}
		writeJSON(w, 200, tables)
	case "rows":
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		page, err := a.databaseService.FetchRows(id, q.Get("table"), limit, offset)
		if err != nil {
			browserError(w, err)
			return
		}
		writeJSON(w, 200, page)
	case "exec":
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", 405)
			return
		}
		var req struct {
			Statement string `json:"statement"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}
		result, err := a.databaseService.ExecStatement(id, req.Statement)
		if err != nil {
			browserError(w, err)
			return
		}
		writeJSON(w, 200, result)
	default:
		http.Error(w, "Not found", 404)
	}
}

func (a *App) jobsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		jobs, err := a.schedulerService.ListJobs()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, 200, jobs)
	case "POST":
		var req scheduler.UpsertJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", 400)
			return
		}
		jobID, err := a.schedulerService.UpsertJob(req)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, 200, map[string]string{"id": jobID})
	default:
		http.Error(w, "Method not allowed", 405)
	}
}

func (a *App) jobHandler(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/jobs/")
	if len(parts) != 1 {
		http.Error(w, "Not found", 404)
		return
	}
	if r.Method != "DELETE" {
		http.Error(w, "Method not allowed", 405)
		return
	}
	if err := a.schedulerService.DeleteJob(parts[0]); err != nil {
		lookupError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (a *App) terminalHandler(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimPrefix(r.URL.Path, "/ws/terminal/")
	if agentID == "" || strings.Contains(agentID, "/") {
		http.Error(w, "Agent ID required", 400)
		return
	}
	a.terminalService.Relay(w, r, agentID)
}

// writeJSON renders v as a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// pathParts splits the request path after prefix into its segments
func pathParts(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// lookupError maps a lookup failure to 404, anything else to 500
func lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Not found", 404)
		return
	}
	http.Error(w, err.Error(), 500)
}

// browserError additionally maps browser validation failures to 400
func browserError(w http.ResponseWriter, err error) {
	var verr *databrowser.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, verr.Error(), 400)
		return
	}
	lookupError(w, err)
}
