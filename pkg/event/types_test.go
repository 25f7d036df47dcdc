package event

import (
	"encoding/json"
	"testing"
)

// TestTypeValid はイベント種別の判定を検証する。
func TestTypeValid(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeSignedUp, TypeSignedIn, TypeSignedOut, TypeSessionRejected, TypeAccessDenied} {
		if !typ.Valid() {
			t.Errorf("%q.Valid() = false, want true", typ)
		}
	}
	for _, typ := range []Type{"", "MediaUploaded", "signedin"} {
		if typ.Valid() {
			t.Errorf("%q.Valid() = true, want false", typ)
		}
	}
}

// TestEventJSON はイベントのJSON表現を検証する。
func TestEventJSON(t *testing.T) {
	t.Parallel()

	t.Run("匿名クライアントのイベントはuser_idを含まないこと", func(t *testing.T) {
		t.Parallel()

		ev, err := New("client-1", "", TypeAccessDenied, AccessDeniedData{Path: "/generation", Target: "/signin"})
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("json.Marshal()でエラーが発生: %v", err)
		}

		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatal(err)
		}
		if _, ok := m["user_id"]; ok {
			t.Errorf("user_id が含まれている: %s", raw)
		}
		if m["event_type"] != "AccessDenied" {
			t.Errorf("event_type = %v, want AccessDenied", m["event_type"])
		}
		data, ok := m["data"].(map[string]any)
		if !ok {
			t.Fatalf("data がオブジェクトではない: %s", raw)
		}
		if data["path"] != "/generation" || data["target"] != "/signin" {
			t.Errorf("data = %v", data)
		}
	})
}
