package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/transport/dto"
	httpmw "github.com/voicecanvas/listening-room/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

const maxBody = 64 << 10

type Handler struct {
	roomSvc     *service.RoomService
	memberSvc   *service.MemberService
	queueSvc    *service.QueueService
	playbackSvc *service.PlaybackService
	chatSvc     *service.ChatService
}

func NewHandler(svc *service.Services) *Handler {
	return &Handler{
		roomSvc:     svc.Rooms,
		memberSvc:   svc.Members,
		queueSvc:    svc.Queue,
		playbackSvc: svc.Playback,
		chatSvc:     svc.Chat,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	return true
}

func roomCode(r *http.Request) string {
	return strings.ToUpper(chi.URLParam(r, "code"))
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.roomSvc.CreateRoom(r.Context(), req.Name, req.HostName)
	if err != nil {
		writeError(w, r, "CreateRoom", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromJoin(res))
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	items, next, err := h.roomSvc.ListRooms(r.Context(), queryInt(r, "limit", 20), r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, "ListRooms", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSummaries(items, next))
}

// POST /rooms/{code}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinRoomRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.memberSvc.JoinRoom(r.Context(), roomCode(r), req.Name)
	if err != nil {
		writeError(w, r, "JoinRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromJoin(res))
}

// GET /rooms/{code}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.roomSvc.Snapshot(r.Context(), roomCode(r))
	if err != nil {
		writeError(w, r, "GetRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(snap))
}

// POST /rooms/{code}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	if err := h.memberSvc.LeaveRoom(r.Context(), roomCode(r), pid); err != nil {
		writeError(w, r, "LeaveRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// POST /rooms/{code}/close
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	if err := h.roomSvc.CloseRoom(r.Context(), roomCode(r), pid); err != nil {
		writeError(w, r, "CloseRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// POST /rooms/{code}/host
func (h *Handler) TransferHost(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferHostRequest
	if !decode(w, r, &req) {
		return
	}
	code := roomCode(r)
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	if err := h.memberSvc.TransferHost(r.Context(), code, pid, req.ParticipantID); err != nil {
		writeError(w, r, "TransferHost", err)
		return
	}
	h.GetRoom(w, r)
}

// GET /rooms/{code}/tracks
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.queueSvc.Queue(r.Context(), roomCode(r))
	if err != nil {
		writeError(w, r, "ListTracks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": dto.FromTracks(tracks)})
}

// POST /rooms/{code}/tracks
func (h *Handler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTrackRequest
	if !decode(w, r, &req) {
		return
	}
	desc, err := req.Descriptor()
	if err != nil {
		writeError(w, r, "AddTrack", err)
		return
	}
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	t, err := h.queueSvc.AddTrack(r.Context(), roomCode(r), desc, pid)
	if err != nil {
		writeError(w, r, "AddTrack", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromTrack(t))
}

// POST /rooms/{code}/tracks/{trackID}/vote
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	t, err := h.queueSvc.Vote(r.Context(), roomCode(r), chi.URLParam(r, "trackID"), pid)
	if err != nil {
		writeError(w, r, "Vote", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTrack(t))
}

// POST /rooms/{code}/tracks/{trackID}/finished
func (h *Handler) FinishTrack(w http.ResponseWriter, r *http.Request) {
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	next, err := h.playbackSvc.FinishTrack(r.Context(), roomCode(r), pid, chi.URLParam(r, "trackID"))
	if err != nil {
		writeError(w, r, "FinishTrack", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlaybackResponse{NowPlaying: dto.FromTrackPtr(next)})
}

// POST /rooms/{code}/skip
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	next, err := h.playbackSvc.Skip(r.Context(), roomCode(r), pid)
	if err != nil {
		writeError(w, r, "Skip", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlaybackResponse{NowPlaying: dto.FromTrackPtr(next)})
}

// GET /rooms/{code}/chat?since=&limit=
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if s := r.URL.Query().Get("since"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			badRequest(w, "invalid since")
			return
		}
		since = n
	}
	items, next, err := h.chatSvc.History(r.Context(), roomCode(r), since, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, r, "GetChat", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ChatPage{Items: dto.FromMessages(items), Next: next})
}

// POST /rooms/{code}/chat
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.PostMessageRequest
	if !decode(w, r, &req) {
		return
	}
	pid := httpmw.ParticipantIDFromCtx(r.Context())
	msg, err := h.chatSvc.Post(r.Context(), roomCode(r), pid, req.Content)
	if err != nil {
		writeError(w, r, "PostMessage", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromMessage(msg))
}
