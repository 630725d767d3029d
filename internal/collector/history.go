package collector

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ystepanoff/antitheft/internal/store"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
)

// History reads back recorded alerts; *store.Store satisfies it.
type History interface {
	Get(stolen protocol.NodeID, packet uint16) (*store.Record, error)
	List(stolen protocol.NodeID) ([]store.Record, error)
}

type historyEntry struct {
	Alert     protocol.Alert `json:"alert"`
	FirstSeen time.Time      `json:"firstSeen"`
	LastSeen  time.Time      `json:"lastSeen"`
	Count     uint32         `json:"count"`
}

func entryOf(r store.Record) historyEntry {
	return historyEntry{Alert: r.Alert, FirstSeen: r.FirstSeen, LastSeen: r.LastSeen, Count: r.Count}
}

// HistoryHandler serves the alert log as JSON:
//
//	GET /alerts/{node}           every alert recorded for a stolen mote
//	GET /alerts/{node}/{packet}  one alert
//
// Ids accept decimal or 0x-prefixed hex.
func HistoryHandler(h History) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /alerts/{node}", func(w http.ResponseWriter, r *http.Request) {
		node, ok := pathUint16(w, r, "node")
		if !ok {
			return
		}
		recs, err := h.List(protocol.NodeID(node))
		if err != nil {
			util.LogError("[history] list %d: %v", node, err)
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		out := make([]historyEntry, 0, len(recs))
		for _, rec := range recs {
			out = append(out, entryOf(rec))
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("GET /alerts/{node}/{packet}", func(w http.ResponseWriter, r *http.Request) {
		node, ok := pathUint16(w, r, "node")
		if !ok {
			return
		}
		packet, ok := pathUint16(w, r, "packet")
		if !ok {
			return
		}
		rec, err := h.Get(protocol.NodeID(node), packet)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "alert not found", http.StatusNotFound)
			return
		case err != nil:
			util.LogError("[history] get %d/%d: %v", node, packet, err)
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entryOf(*rec))
	})
	return mux
}

func pathUint16(w http.ResponseWriter, r *http.Request, name string) (uint16, bool) {
	v, err := strconv.ParseUint(r.PathValue(name), 0, 16)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return uint16(v), true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.LogDebug("[history] write: %v", err)
	}
}
