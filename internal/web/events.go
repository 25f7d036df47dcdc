package web

import (
	"log"

	"github.com/gin-gonic/gin"
	webdb "github.com/nao1215/textgen/internal/web/db"
	"github.com/nao1215/textgen/pkg/event"
)

// record はセッションイベントを session_events に追記する。
// 記録の失敗はログに残すだけで、リクエストの結果には影響させない。
func (s *Server) record(c *gin.Context, userID string, eventType event.Type, data any) {
	ev, err := event.New(clientID(c), userID, eventType, data)
	if err != nil {
		log.Printf("[Event] イベントの生成に失敗: type=%s, error=%v", eventType, err)
		return
	}
	if err := s.queries.AppendSessionEvent(c.Request.Context(), webdb.AppendSessionEventParams{
		ID:        ev.ID,
		ClientID:  ev.ClientID,
		UserID:    ev.UserID,
		EventType: string(ev.EventType),
		Data:      string(ev.Data),
		CreatedAt: ev.CreatedAt,
	}); err != nil {
		log.Printf("[Event] イベントの記録に失敗: type=%s, client=%s, error=%v", eventType, ev.ClientID, err)
	}
}

// toEvent はDBの行をイベントに変換する。
func toEvent(row webdb.SessionEvent) event.Event {
	return event.Event{
		ID:        row.ID,
		ClientID:  row.ClientID,
		UserID:    row.UserID,
		EventType: event.Type(row.EventType),
		Data:      []byte(row.Data),
		CreatedAt: row.CreatedAt,
	}
}
