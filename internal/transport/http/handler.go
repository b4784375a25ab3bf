package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/live-room-service/internal/live"
	"github.com/cwrk-planet/live-room-service/internal/postgres"
	"github.com/cwrk-planet/live-room-service/internal/service"
	"github.com/cwrk-planet/live-room-service/internal/transport/http/httputil"
	httpmw "github.com/cwrk-planet/live-room-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	liveSvc        *service.LiveService
	maxUploadBytes int64
}

func NewHandler(liveSvc *service.LiveService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{liveSvc: liveSvc, maxUploadBytes: maxUploadBytes}
}

// POST /streaming-room/{id}/start
func (h *Handler) StartRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.liveSvc.StartRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(r.Context(), w, "handler.StartRoom", err)
		return
	}
	httputil.OK(w, snap)
}

// POST /streaming-room/{id}/offline
func (h *Handler) StopRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stopped := h.liveSvc.StopRoom(r.Context(), id)
	httputil.OK(w, StopResponse{RoomID: id, Stopped: stopped})
}

// POST /streaming-room/{id}/next-product?generation=
func (h *Handler) NextProduct(w http.ResponseWriter, r *http.Request) {
	var gen *uint64
	if s := r.URL.Query().Get("generation"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			httputil.Fail(r.Context(), w, "handler.NextProduct", fmt.Errorf("%w: generation", httputil.ErrInvalidInput))
			return
		}
		gen = &n
	}

	snap, applied, err := h.liveSvc.AdvanceProduct(r.Context(), chi.URLParam(r, "id"), gen)
	if err != nil {
		httputil.Fail(r.Context(), w, "handler.NextProduct", err)
		return
	}
	httputil.OK(w, AdvanceResponse{Applied: applied, Room: snap})
}

// POST /streaming-room/{id}/chat
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		slog.Error("handler.PostChat.Decode:", slog.Any("err", err))
		httputil.Fail(r.Context(), w, "handler.PostChat", fmt.Errorf("%w: invalid json", httputil.ErrInvalidInput))
		return
	}

	res, err := h.liveSvc.PostChat(r.Context(), chi.URLParam(r, "id"), live.ChatInput{
		UserID:   userID(r, req.UserID),
		UserName: req.UserName,
		Text:     req.Text,
	})
	if err != nil {
		httputil.Fail(r.Context(), w, "handler.PostChat", err)
		return
	}
	httputil.OK(w, ChatResponse{Message: res.Message, Reply: res.Reply})
}

// POST /streaming-room/{id}/asr — multipart (поле file) или сырое тело.
func (h *Handler) SubmitAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	in := live.AudioInput{
		UserID:   userID(r, r.URL.Query().Get("user_id")),
		UserName: r.URL.Query().Get("user_name"),
	}

	if mr, err := r.MultipartReader(); err == nil {
		part, err := nextFilePart(mr)
		if err != nil {
			httputil.Fail(r.Context(), w, "handler.SubmitAudio", err)
			return
		}
		defer part.Close()
		body, err := io.ReadAll(part)
		if err != nil {
			httputil.Fail(r.Context(), w, "handler.SubmitAudio", uploadErr(err))
			return
		}
		in.Name = part.FileName()
		in.ContentType = part.Header.Get("Content-Type")
		in.Body, in.Size = bytesReader(body)
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			httputil.Fail(r.Context(), w, "handler.SubmitAudio", uploadErr(err))
			return
		}
		in.Name = r.URL.Query().Get("name")
		in.ContentType = r.Header.Get("Content-Type")
		in.Body, in.Size = bytesReader(body)
	}

	res, err := h.liveSvc.SubmitAudio(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httputil.Fail(r.Context(), w, "handler.SubmitAudio", err)
		return
	}

	out := AudioResponse{AudioRef: res.AudioRef, Transcript: res.Transcript, Reply: res.Chat.Reply}
	if res.Chat.Message.ID != "" {
		msg := res.Chat.Message
		out.Message = &msg
	}
	httputil.OK(w, out)
}

// GET /streaming-room/{id}/live-info?since=
func (h *Handler) LiveInfo(w http.ResponseWriter, r *http.Request) {
	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			httputil.Fail(r.Context(), w, "handler.LiveInfo", fmt.Errorf("%w: since", httputil.ErrInvalidInput))
			return
		}
		since = n
	}

	snap, err := h.liveSvc.GetLiveStatus(r.Context(), chi.URLParam(r, "id"), since)
	if err != nil {
		httputil.Fail(r.Context(), w, "handler.LiveInfo", err)
		return
	}
	httputil.OK(w, snap)
}

// GET /streaming-room/live
func (h *Handler) ListLive(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, LiveListResponse{Rooms: h.liveSvc.ListLive(r.Context())})
}

// GET /streaming-room/{id}/history?limit=&cursor=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	msgs, next, err := h.liveSvc.History(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			httputil.Fail(r.Context(), w, "handler.History", fmt.Errorf("%w: %v", httputil.ErrInvalidInput, err))
			return
		}
		httputil.Fail(r.Context(), w, "handler.History", err)
		return
	}
	httputil.OK(w, HistoryResponse{Messages: msgs, NextCursor: next})
}

// userID — из токена, иначе то, что прислал клиент.
func userID(r *http.Request, fallback string) string {
	if id := httpmw.UserIDFromCtx(r.Context()); id != "" {
		return id
	}
	return fallback
}
