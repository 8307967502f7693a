package httpapi

import (
	"net/http"

	"distfs/internal/apierr"
	"distfs/internal/master"
	"distfs/internal/metastore"
	"distfs/internal/middleware"

	"github.com/gorilla/mux"
)

// NewMasterRouter builds the full mux.Router for a master node.
func NewMasterRouter(n *master.Node) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(countingMiddleware(n))

	r.HandleFunc("/health", masterHealth(n)).Methods(http.MethodGet)
	r.HandleFunc("/election/msg", masterElectionMsg(n)).Methods(http.MethodPost)
	r.HandleFunc("/heartbeat", masterHeartbeat(n)).Methods(http.MethodPost)
	r.HandleFunc("/system/status", masterStatus(n)).Methods(http.MethodGet)
	r.HandleFunc("/system/replicate", masterReplicate(n)).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", masterRegister(n)).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", masterLogin(n)).Methods(http.MethodPost)
	r.HandleFunc("/file/create", masterCreateFile(n)).Methods(http.MethodPost)
	r.HandleFunc("/file/lookup/{file_id}", masterLookupFile(n)).Methods(http.MethodPost)
	r.HandleFunc("/file/list/{user_id}", masterListFiles(n)).Methods(http.MethodGet)
	r.HandleFunc("/access/request", masterRequestAccess(n)).Methods(http.MethodPost)
	r.HandleFunc("/access/pending/{owner_user_id}", masterPendingAccess(n)).Methods(http.MethodGet)
	r.HandleFunc("/access/approve", masterApproveAccess(n)).Methods(http.MethodPost)
	r.HandleFunc("/admin/kill", handleKill(masterLabel(n), n.Audit)).Methods(http.MethodPost)
	if n.Hub != nil {
		r.HandleFunc("/admin/ws", n.Hub.ServeHTTP).Methods(http.MethodGet)
	}

	return r
}

func masterLabel(n *master.Node) string {
	if n.IsLeader() {
		return "master(leader)"
	}
	return "master(follower)"
}

func countingMiddleware(n *master.Node) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n.IncRequestCount()
			next.ServeHTTP(w, r)
		})
	}
}

func masterHealth(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := "follower"
		if n.IsLeader() {
			role = "leader"
		}
		respondOK(w, map[string]string{"status": "ok", "role": role})
	}
}

type electionMsgBody struct {
	Type   string `json:"type"`
	Sender int    `json:"sender"`
}

func masterElectionMsg(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body electionMsgBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		status := n.Election.HandleElectionMessage(body.Type, body.Sender)
		if status == "" {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown type"})
			return
		}
		respondOK(w, map[string]string{"status": status})
	}
}

type heartbeatBody struct {
	Port          int     `json:"port"`
	SimulatedTime float64 `json:"time"`
}

func masterHeartbeat(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body heartbeatBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		n.HandleHeartbeat(body.Port)
		respondOK(w, map[string]string{"status": "ok"})
	}
}

func masterStatus(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, n.Status())
	}
}

func masterReplicate(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body master.ReplicateBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		if err := n.ApplyReplicated(body.Op); err != nil {
			respondErr(w, apierr.New(apierr.StorageError, err.Error()))
			return
		}
		respondOK(w, map[string]string{"status": "ok"})
	}
}

type registerBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func masterRegister(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !n.IsLeader() {
			respondErr(w, apierr.New(apierr.NotLeader, "not leader"))
			return
		}
		var body registerBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		user, err := n.Register(body.Username, body.Password)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"user_id": user.UserID, "username": user.Username})
	}
}

func masterLogin(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		user, err := n.Login(body.Username, body.Password)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"user_id": user.UserID, "username": user.Username})
	}
}

type createFileBody struct {
	Filename string `json:"filename"`
	UserID   string `json:"user_id"`
}

func masterCreateFile(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !n.IsLeader() {
			respondErr(w, apierr.New(apierr.NotLeader, "not leader"))
			return
		}
		var body createFileBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		result, err := n.CreateFile(body.Filename, body.UserID)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, result)
	}
}

type lookupBody struct {
	UserID string `json:"user_id"`
}

func masterLookupFile(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := mux.Vars(r)["file_id"]
		var body lookupBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		chunks, err := n.LookupFile(fileID, body.UserID)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]interface{}{"chunks": chunks})
	}
}

func masterListFiles(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["user_id"]
		views, err := n.ListFiles(userID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if views == nil {
			views = []metastore.FileView{}
		}
		respondOK(w, views)
	}
}

type accessRequestBody struct {
	FileID     string `json:"file_id"`
	UserID     string `json:"user_id"`
	AccessType string `json:"access_type"`
}

func masterRequestAccess(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !n.IsLeader() {
			respondErr(w, apierr.New(apierr.NotLeader, "not leader"))
			return
		}
		var body accessRequestBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		if err := n.RequestAccess(body.FileID, body.UserID, body.AccessType); err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"status": "pending"})
	}
}

func masterPendingAccess(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := mux.Vars(r)["owner_user_id"]
		views, err := n.PendingRequests(ownerID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if views == nil {
			views = []metastore.PendingRequestView{}
		}
		respondOK(w, views)
	}
}

type approveBody struct {
	RequestID string `json:"req_id"`
	Action    string `json:"action"`
}

func masterApproveAccess(n *master.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !n.IsLeader() {
			respondErr(w, apierr.New(apierr.NotLeader, "not leader"))
			return
		}
		var body approveBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		if body.Action != metastore.StatusApproved && body.Action != metastore.StatusRejected {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid action"})
			return
		}
		if err := n.ApproveAccess(body.RequestID, body.Action); err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"status": body.Action})
	}
}
