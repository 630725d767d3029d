package collector

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ystepanoff/antitheft/internal/store"
	"github.com/ystepanoff/antitheft/protocol"
)

func TestHistoryHandler(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	for _, a := range []protocol.Alert{
		{StolenID: 0x10, PacketID: 2, VoltageData: 2800},
		{StolenID: 0x10, PacketID: 1, VoltageData: 2900},
		{StolenID: 0x11, PacketID: 1},
	} {
		st.Put(a, fixedTime)
	}
	st.Put(protocol.Alert{StolenID: 0x10, PacketID: 2}, fixedTime.Add(time.Minute))

	srv := httptest.NewServer(HistoryHandler(st))
	defer srv.Close()

	t.Run("list", func(t *testing.T) {
		var got []historyEntry
		if code := getJSON(t, srv.URL+"/alerts/0x10", &got); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if len(got) != 2 || got[0].Alert.PacketID != 1 || got[1].Alert.PacketID != 2 {
			t.Fatalf("entries = %+v, want packets 1, 2", got)
		}
		if got[1].Count != 2 || !got[1].LastSeen.Equal(fixedTime.Add(time.Minute)) {
			t.Errorf("entry = %+v, want count 2 and updated LastSeen", got[1])
		}
	})

	t.Run("list empty", func(t *testing.T) {
		var got []historyEntry
		if code := getJSON(t, srv.URL+"/alerts/99", &got); code != http.StatusOK || len(got) != 0 {
			t.Errorf("status = %d, entries = %+v; want 200 and none", code, got)
		}
	})

	t.Run("get", func(t *testing.T) {
		var got historyEntry
		if code := getJSON(t, srv.URL+"/alerts/16/1", &got); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if got.Alert.VoltageData != 2900 || got.Count != 1 || !got.FirstSeen.Equal(fixedTime) {
			t.Errorf("entry = %+v", got)
		}
	})

	tests := []struct {
		path string
		want int
	}{
		{"/alerts/16/7", http.StatusNotFound},
		{"/alerts/node", http.StatusBadRequest},
		{"/alerts/16/70000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
