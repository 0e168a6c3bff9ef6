package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	chatmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/chat"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/service/agent"
	chatservice "github.com/zhaojunwei/campus-companion/backend/internal/service/chat"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
	"github.com/zhaojunwei/campus-companion/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc    *chatservice.Service
	emotionSvc *emotionservice.Service
	agentSvc   *agent.Service
}

// New 创建聊天处理器。agentSvc 仅用于流式端点，可为 nil。
func New(chatSvc *chatservice.Service, emotionSvc *emotionservice.Service, agentSvc *agent.Service) *Handler {
	return &Handler{chatSvc: chatSvc, emotionSvc: emotionSvc, agentSvc: agentSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/history", h.handleHistory)
	r.Get("/chat/stream", h.handleStream)
}

// handleChat 处理一轮对话，可携带摄像头画面
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var payload struct {
		Text      string `json:"text"`
		ImageData string `json:"image_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var detected *emotionmodel.Result
	if payload.ImageData != "" {
		result := h.emotionSvc.AnalyzeImage([]byte(payload.ImageData))
		detected = &result
		log.Printf("[chat] detected emotion: %s with confidence: %.2f", result.Label, result.Confidence)
	}

	reply, err := h.chatSvc.Respond(r.Context(), userID, payload.Text, detected)
	if err != nil {
		log.Printf("[chat] error during chat processing: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":         reply,
		"detected_emotion": detected,
	})
}

// handleHistory 返回完整聊天记录
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	turns, err := h.chatSvc.History(r.Context(), userID)
	if err != nil {
		if errors.Is(err, chatmodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "chat history not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user_id":      userID,
		"chat_history": turns,
	})
}

// handleStream 以SSE推送逐块回复，结束后落库整轮对话
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	userMessage := r.URL.Query().Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if !h.agentSvc.StreamingEnabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "streaming unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	conversationContext, err := h.chatSvc.Context(r.Context(), userID, userMessage)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, map[string]any{"event": "start"})

	reply, err := h.streamReply(r, w, flusher, agent.Input{
		Context:      conversationContext,
		UserMessage:  userMessage,
		StudentIssue: userMessage,
		Emotion:      "unknown",
	})
	if err != nil {
		log.Printf("[chat] stream failed for user=%s: %v", userID, err)
		utils.SendSSEChunk(w, flusher, map[string]any{"event": "error", "error": "streaming failed"})
		return
	}

	turn := chatmodel.Turn{User: userMessage, Bot: reply}
	if err := h.chatSvc.Append(r.Context(), userID, turn); err != nil {
		log.Printf("[chat] failed to persist streamed turn for user=%s: %v", userID, err)
	}

	utils.SendSSEChunk(w, flusher, map[string]any{"event": "end", "finished": true})
}

func (h *Handler) streamReply(r *http.Request, w http.ResponseWriter, flusher http.Flusher, in agent.Input) (string, error) {
	stream, err := h.agentSvc.Stream(r.Context(), in)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEChunk(w, flusher, map[string]any{"event": "delta", "content": chunk.Content})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("failed to assemble streamed reply: %w", err)
	}

	utils.SendSSEChunk(w, flusher, map[string]any{"event": "message", "content": response.Content})
	return response.Content, nil
}
