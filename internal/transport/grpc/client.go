package grpcx

import (
	"context"
	"fmt"
	"time"

	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls RoomService over a shared connection. Token-bound calls take
// the session token returned by CreateRoom/JoinRoom.
type Client struct {
	cc      grpc.ClientConnInterface
	conn    *grpc.ClientConn
	timeout time.Duration
}

type ClientOptions struct {
	Target  string
	Timeout time.Duration
	Dial    []grpc.DialOption // доп. опции, например bufconn в тестах
}

func Dial(opts ClientOptions) (*Client, error) {
	if opts.Target == "" {
		return nil, fmt.Errorf("room client: empty target")
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts.Dial...)
	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("room client: new client failed: %w", err)
	}
	c := NewClient(conn, opts.Timeout)
	c.conn = conn
	return c, nil
}

// NewClient wraps an existing connection; the caller keeps ownership of cc.
func NewClient(cc grpc.ClientConnInterface, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{cc: cc, timeout: timeout}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func withToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, mdAuthorization, "Bearer "+token)
}

func (c *Client) invoke(ctx context.Context, token, method string, in, out any, opts ...grpc.CallOption) error {
	ctx, cancel := context.WithTimeout(withToken(ctx, token), c.timeout)
	defer cancel()
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) CreateRoom(ctx context.Context, name, hostName string) (dto.JoinResponse, error) {
	var out dto.JoinResponse
	err := c.invoke(ctx, "", "CreateRoom", &dto.CreateRoomRequest{Name: name, HostName: hostName}, &out)
	return out, err
}

func (c *Client) ListRooms(ctx context.Context, limit int, cursor string) (dto.RoomsPage, error) {
	var out dto.RoomsPage
	err := c.invoke(ctx, "", "ListRooms", &ListRoomsRequest{Limit: limit, Cursor: cursor}, &out)
	return out, err
}

func (c *Client) JoinRoom(ctx context.Context, code, name string) (dto.JoinResponse, error) {
	var out dto.JoinResponse
	err := c.invoke(ctx, "", "JoinRoom", &JoinRoomRequest{Code: code, Name: name}, &out)
	return out, err
}

func (c *Client) LeaveRoom(ctx context.Context, token, code string) error {
	return c.invoke(ctx, token, "LeaveRoom", &RoomRequest{Code: code}, &Empty{})
}

func (c *Client) TransferHost(ctx context.Context, token, code, to string) (dto.Snapshot, error) {
	var out dto.Snapshot
	err := c.invoke(ctx, token, "TransferHost", &TransferHostRequest{Code: code, ParticipantID: to}, &out)
	return out, err
}

func (c *Client) GetSnapshot(ctx context.Context, token, code string) (dto.Snapshot, error) {
	var out dto.Snapshot
	err := c.invoke(ctx, token, "GetSnapshot", &RoomRequest{Code: code}, &out)
	return out, err
}

func (c *Client) AddTrack(ctx context.Context, token, code string, track dto.AddTrackRequest) (dto.Track, error) {
	var out dto.Track
	err := c.invoke(ctx, token, "AddTrack", &AddTrackRequest{Code: code, Track: track}, &out)
	return out, err
}

func (c *Client) Vote(ctx context.Context, token, code, trackID string) (dto.Track, error) {
	var out dto.Track
	err := c.invoke(ctx, token, "Vote", &TrackRequest{Code: code, TrackID: trackID}, &out)
	return out, err
}

func (c *Client) Skip(ctx context.Context, token, code string) (dto.PlaybackResponse, error) {
	var out dto.PlaybackResponse
	err := c.invoke(ctx, token, "Skip", &RoomRequest{Code: code}, &out)
	return out, err
}

func (c *Client) FinishTrack(ctx context.Context, token, code, trackID string) (dto.PlaybackResponse, error) {
	var out dto.PlaybackResponse
	err := c.invoke(ctx, token, "FinishTrack", &TrackRequest{Code: code, TrackID: trackID}, &out)
	return out, err
}

func (c *Client) PostMessage(ctx context.Context, token, code, content string) (dto.ChatMessage, error) {
	var out dto.ChatMessage
	err := c.invoke(ctx, token, "PostMessage", &PostMessageRequest{Code: code, Content: content}, &out)
	return out, err
}

// MessageStream yields chat messages until Recv returns an error (io.EOF when the room closed).
type MessageStream struct {
	stream grpc.ClientStream
}

func (s *MessageStream) Recv() (dto.ChatMessage, error) {
	var m dto.ChatMessage
	err := s.stream.RecvMsg(&m)
	return m, err
}

// ReadMessages opens the chat stream. It lives as long as ctx, without the call timeout.
func (c *Client) ReadMessages(ctx context.Context, token, code string, since uint64) (*MessageStream, error) {
	desc := &grpc.StreamDesc{StreamName: "ReadMessages", ServerStreams: true}
	stream, err := c.cc.NewStream(withToken(ctx, token), desc, fullMethod("ReadMessages"), grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&ReadMessagesRequest{Code: code, Since: since}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &MessageStream{stream: stream}, nil
}
