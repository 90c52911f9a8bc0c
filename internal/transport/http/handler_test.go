package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/registry"
	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/session"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T, limiter ratelimit.Limiter) api {
	t.Helper()
	sessions := session.NewManager("http-secret", "listening-room", time.Hour, 0)
	svc, err := service.New(service.Config{
		MaxParticipants: 3,
		LockTimeout:     time.Second,
		EmptyGrace:      time.Hour,
		Library: []domain.TrackDescriptor{
			{Title: "Midnight Dreams", Artist: "Luna Echo", Duration: 225 * time.Second},
			{Title: "Electric Sunset", Artist: "Neon Wave", Duration: 252 * time.Second},
		},
	}, registry.New(), sessions, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{Services: svc, Sessions: sessions, Limiter: limiter}))
	t.Cleanup(srv.Close)
	return api{t: t, srv: srv}
}

func (a api) do(method, path, token string, body any, out any) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a api) create(host string) dto.JoinResponse {
	a.t.Helper()
	var out dto.JoinResponse
	resp := a.do(http.MethodPost, "/rooms", "", dto.CreateRoomRequest{Name: "Friday", HostName: host}, &out)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	return out
}

func (a api) join(code, name string) dto.JoinResponse {
	a.t.Helper()
	var out dto.JoinResponse
	resp := a.do(http.MethodPost, "/rooms/"+code+"/join", "", dto.JoinRoomRequest{Name: name}, &out)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	return out
}

func TestCreateAndJoin(t *testing.T) {
	a := newAPI(t, nil)

	host := a.create("Ann")
	assert.NotEmpty(t, host.Token)
	assert.True(t, host.Participant.IsHost)
	assert.Len(t, host.Snapshot.Room.Code, 6)
	assert.Equal(t, "playing", host.Snapshot.State)
	require.NotNil(t, host.Snapshot.NowPlaying)
	assert.Equal(t, "Midnight Dreams", host.Snapshot.NowPlaying.Title)
	assert.Equal(t, "3:45", host.Snapshot.NowPlaying.Duration)

	// код регистронезависимый
	guest := a.join(strings.ToLower(host.Snapshot.Room.Code), "Bob")
	assert.False(t, guest.Participant.IsHost)
	assert.Len(t, guest.Snapshot.Participants, 2)

	var snap dto.Snapshot
	resp := a.do(http.MethodGet, "/rooms/"+host.Snapshot.Room.Code, guest.Token, nil, &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Friday", snap.Room.Name)
}

func TestJoinErrors(t *testing.T) {
	a := newAPI(t, nil)
	host := a.create("Ann")
	code := host.Snapshot.Room.Code

	var e dto.ErrorResponse
	resp := a.do(http.MethodPost, "/rooms/ZZZZZZ/join", "", dto.JoinRoomRequest{Name: "Bob"}, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, dto.CodeRoomNotFound, e.Error.Code)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/join", "", dto.JoinRoomRequest{Name: "   "}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dto.CodeInvalidName, e.Error.Code)

	a.join(code, "Bob")
	a.join(code, "Cid")
	resp = a.do(http.MethodPost, "/rooms/"+code+"/join", "", dto.JoinRoomRequest{Name: "Dan"}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, dto.CodeRoomFull, e.Error.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t, nil)
	one := a.create("Ann")
	two := a.create("Zoe")

	var e dto.ErrorResponse
	resp := a.do(http.MethodGet, "/rooms/"+one.Snapshot.Room.Code, "", nil, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, dto.CodeUnauthenticated, e.Error.Code)

	// токен другой комнаты
	resp = a.do(http.MethodGet, "/rooms/"+one.Snapshot.Room.Code, two.Token, nil, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestQueueFlow(t *testing.T) {
	a := newAPI(t, nil)
	host := a.create("Ann")
	code := host.Snapshot.Room.Code
	guest := a.join(code, "Bob")

	var added dto.Track
	resp := a.do(http.MethodPost, "/rooms/"+code+"/tracks", guest.Token,
		dto.AddTrackRequest{Title: "Ocean Breeze", Artist: "Coastal", Duration: "5:03"}, &added)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, added.Votes)
	assert.Equal(t, string(domain.SourceUserAdded), added.Source)
	assert.EqualValues(t, 303000, added.DurationMs)

	var e dto.ErrorResponse
	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks", guest.Token, dto.AddTrackRequest{Title: "x"}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dto.CodeInvalidTrack, e.Error.Code)

	var voted dto.Track
	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/"+added.ID+"/vote", host.Token, nil, &voted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, voted.Votes)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/"+added.ID+"/vote", host.Token, nil, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, dto.CodeAlreadyVoted, e.Error.Code)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/nope/vote", host.Token, nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var list struct {
		Items []dto.Track `json:"items"`
	}
	a.do(http.MethodGet, "/rooms/"+code+"/tracks", guest.Token, nil, &list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, added.ID, list.Items[0].ID)

	// skip только хосту
	resp = a.do(http.MethodPost, "/rooms/"+code+"/skip", guest.Token, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, dto.CodeNotAuthorized, e.Error.Code)

	var pb dto.PlaybackResponse
	resp = a.do(http.MethodPost, "/rooms/"+code+"/skip", host.Token, nil, &pb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, pb.NowPlaying)
	assert.Equal(t, added.ID, pb.NowPlaying.ID)

	// гость не может завершить трек за хоста
	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/"+added.ID+"/finished", guest.Token, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, dto.CodeNotAuthorized, e.Error.Code)

	var snap dto.Snapshot
	a.do(http.MethodGet, "/rooms/"+code, guest.Token, nil, &snap)
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, added.ID, snap.NowPlaying.ID)

	// устаревший finished не трогает очередь
	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/"+host.Snapshot.NowPlaying.ID+"/finished", host.Token, nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/tracks/"+added.ID+"/finished", host.Token, nil, &pb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, pb.NowPlaying)
	assert.Equal(t, "Electric Sunset", pb.NowPlaying.Title)
}

func TestChat(t *testing.T) {
	a := newAPI(t, nil)
	host := a.create("Ann")
	code := host.Snapshot.Room.Code

	var msg dto.ChatMessage
	resp := a.do(http.MethodPost, "/rooms/"+code+"/chat", host.Token, dto.PostMessageRequest{Content: "  hi all "}, &msg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "hi all", msg.Content)
	assert.Equal(t, "Ann", msg.SenderName)

	var e dto.ErrorResponse
	resp = a.do(http.MethodPost, "/rooms/"+code+"/chat", host.Token, dto.PostMessageRequest{Content: " "}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dto.CodeEmptyMessage, e.Error.Code)

	var page dto.ChatPage
	resp = a.do(http.MethodGet, "/rooms/"+code+"/chat?since=0", host.Token, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, msg.Seq, page.Items[len(page.Items)-1].Seq)

	resp = a.do(http.MethodGet, "/rooms/"+code+"/chat?since="+strconv.FormatUint(page.Next, 10), host.Token, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, page.Items)

	resp = a.do(http.MethodGet, "/rooms/"+code+"/chat?since=abc", host.Token, nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaveTransferClose(t *testing.T) {
	a := newAPI(t, nil)
	host := a.create("Ann")
	code := host.Snapshot.Room.Code
	guest := a.join(code, "Bob")

	var snap dto.Snapshot
	resp := a.do(http.MethodPost, "/rooms/"+code+"/host", host.Token,
		dto.TransferHostRequest{ParticipantID: guest.Participant.ID}, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, guest.Participant.ID, snap.Room.HostID)

	var e dto.ErrorResponse
	resp = a.do(http.MethodPost, "/rooms/"+code+"/close", host.Token, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/leave", host.Token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// токен пережил членство, но не пускает
	resp = a.do(http.MethodGet, "/rooms/"+code, host.Token, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, dto.CodeNotAMember, e.Error.Code)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/close", guest.Token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodPost, "/rooms/"+code+"/join", "", dto.JoinRoomRequest{Name: "Cid"}, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRooms(t *testing.T) {
	a := newAPI(t, nil)
	for _, n := range []string{"A", "B", "C"} {
		a.create(n)
	}

	var page dto.RoomsPage
	resp := a.do(http.MethodGet, "/rooms?limit=2", "", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	var last dto.RoomsPage
	resp = a.do(http.MethodGet, "/rooms?limit=2&cursor="+page.NextCursor, "", nil, &last)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	var e dto.ErrorResponse
	resp = a.do(http.MethodGet, "/rooms?cursor=!!!", "", nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	a := newAPI(t, ratelimit.NewMemory(2, time.Minute))
	host := a.create("Ann")
	code := host.Snapshot.Room.Code

	resp := a.do(http.MethodPost, "/rooms/"+code+"/chat", host.Token, dto.PostMessageRequest{Content: "1"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = a.do(http.MethodPost, "/rooms/"+code+"/chat", host.Token, dto.PostMessageRequest{Content: "2"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var e dto.ErrorResponse
	resp = a.do(http.MethodPost, "/rooms/"+code+"/chat", host.Token, dto.PostMessageRequest{Content: "3"}, &e)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, dto.CodeRateLimited, e.Error.Code)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// GET не лимитируется
	resp = a.do(http.MethodGet, "/rooms/"+code, host.Token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, nil)
	resp := a.do(http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
