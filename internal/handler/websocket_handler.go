package handler

import (
	"context"
	"errors"
	"net/http"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/session"
	"CuteTutor/internal/tutor"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Upgrade HTTP connection to WebSocket
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 서버가 보내는 프레임: 대화 턴 또는 에러
type counselorFrame struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CounselorConnection godoc
// @Summary      상담 대화 WebSocket 연결
// @Description  상담 대화를 WebSocket으로 주고받습니다.
// @Description  <br>
// @Description  **참고: 이것은 표준 HTTP API가 아닙니다.**
// @Description  클라이언트는 `ws://` 또는 `wss://` 스킴을 사용하여 이 엔드포인트에 연결해야 합니다.
// @Description  인증은 **쿼리 파라미터('token')**를 통해 수행됩니다.
// @Description  연결 직후 세션의 기존 대화가 `{"speaker","text"}` 프레임으로 재전송되고, 이후 클라이언트가 보내는 텍스트 메시지마다 상담 답변 프레임이 전송됩니다.
// @Tags         Counselor
// @Param        token query string true "로그인 시 발급받은 JWT 토큰"
// @Success      101 {string} string "101 Switching Protocols (WebSocket으로 프로토콜 전환 성공)"
// @Failure      401 {object} handler.ErrorResponse "토큰 누락 또는 유효하지 않은 토큰"
// @Router       /ws/counselor [get]
func (h *Handler) CounselorConnection(c *gin.Context) {
	st := middleware.SessionFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to WebSocket", zap.String("username", st.Username), zap.Error(err))
		return
	}
	defer conn.Close()
	h.logger.Info("counselor connection established", zap.String("username", st.Username))

	h.manageCounselorSession(c.Request.Context(), conn, st)
}

func (h *Handler) manageCounselorSession(ctx context.Context, conn *websocket.Conn, st *session.State) {
	log := h.logger.With(zap.String("username", st.Username), zap.String("session", st.ID))

	for _, turn := range st.ChatHistory() {
		if err := conn.WriteJSON(counselorFrame{Speaker: turn.Speaker, Text: turn.Text}); err != nil {
			log.Warn("failed to replay history", zap.Error(err))
			return
		}
	}

ReadLoop:
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("error reading message", zap.Error(err))
			}
			break ReadLoop
		}

		if messageType != websocket.TextMessage {
			log.Debug("unsupported message type", zap.Int("type", messageType))
			continue
		}

		frame := counselorFrame{Speaker: tutor.SpeakerTutor}
		reply, err := h.counselorTurn(ctx, st, string(message))
		switch {
		case errors.Is(err, errEmptyMessage):
			frame = counselorFrame{Error: "Message cannot be empty"}
		case err != nil:
			log.Error("counselor request failed", zap.Error(err))
			frame = counselorFrame{Error: "Failed to get a response from the counselor"}
		default:
			frame.Text = reply
		}

		if err := conn.WriteJSON(frame); err != nil {
			log.Warn("error sending message", zap.Error(err))
			break ReadLoop
		}
	}
	log.Info("counselor connection closed")
}
