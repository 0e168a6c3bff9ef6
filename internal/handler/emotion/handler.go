package emotion

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
	"github.com/zhaojunwei/campus-companion/backend/pkg/utils"
)

// maxUploadBytes caps the multipart memory footprint of one analysis upload.
const maxUploadBytes = 10 << 20

// Handler 情绪分析相关的HTTP处理器
type Handler struct {
	svc      *emotionservice.Service
	upgrader websocket.Upgrader
}

// New 创建情绪处理器
func New(svc *emotionservice.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册情绪相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/emotion/analyze", h.handleAnalyze)
	r.Get("/emotion/analytics", h.handleAnalytics)
	r.Get("/emotion/live", h.handleLive)
}

// handleAnalyze 分析一张上传的图片并写入情绪日志
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	log.Printf("[emotion] received file: %s, content type: %s", header.Filename, header.Header.Get("Content-Type"))

	payload, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	result, err := h.svc.AnalyzeUpload(r.Context(), userID, payload)
	if err != nil {
		if errors.Is(err, emotionservice.ErrEmptyUpload) {
			utils.RespondError(w, http.StatusBadRequest, "empty file received")
			return
		}
		log.Printf("[emotion] error in analyze upload: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "error analyzing emotion")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleAnalytics 返回情绪标签出现次数统计
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	counts, err := h.svc.Analytics(r.Context(), userID)
	if err != nil {
		log.Printf("[emotion] error retrieving analytics: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "error retrieving emotion analytics")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"emotions": counts})
}

// handleLive 通过WebSocket逐帧分析摄像头画面。每条消息是一帧图像
// （原始字节或base64），回包为该帧的情绪结果。
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[emotion] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[emotion] live analysis connected for user=%s", userID)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[emotion] websocket read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		result := h.svc.AnalyzeImage(frame)
		if err := h.svc.Record(r.Context(), userID, "", result); err != nil {
			log.Printf("[emotion] failed to record live frame for user=%s: %v", userID, err)
		}

		if err := conn.WriteJSON(result); err != nil {
			log.Printf("[emotion] websocket write error: %v", err)
			return
		}
	}
}
