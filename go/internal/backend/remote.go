package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/clients"
	"github.com/mcdev12/liveballot/go/internal/ballotrpc"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// Remote talks to the liveballot API server: connect unary calls for the tables and a
// websocket per subscribed table for change notifications.
type Remote struct {
	http   *clients.BaseClient
	dialer *websocket.Dialer

	listVotes     *connect.Client[ballotrpc.ListVotesRequest, ballotrpc.ListVotesResponse]
	getVote       *connect.Client[ballotrpc.GetVoteRequest, ballotrpc.GetVoteResponse]
	incrementVote *connect.Client[ballotrpc.IncrementVoteRequest, ballotrpc.IncrementVoteResponse]
	updateVotes   *connect.Client[ballotrpc.UpdateVotesRequest, ballotrpc.UpdateVotesResponse]
	getSetting    *connect.Client[ballotrpc.GetSettingRequest, ballotrpc.GetSettingResponse]
	upsertSetting *connect.Client[ballotrpc.UpsertSettingRequest, ballotrpc.UpsertSettingResponse]
}

var _ Backend = (*Remote)(nil)

// RemoteConfig configures a Remote backend
type RemoteConfig struct {
	BaseURL    string
	AdminToken string
}

// NewRemote creates a client for the API server at cfg.BaseURL
func NewRemote(cfg RemoteConfig) *Remote {
	httpClient := clients.NewBaseClient(cfg.BaseURL)
	if cfg.AdminToken != "" {
		httpClient.SetHeader(ballotrpc.AdminTokenHeader, cfg.AdminToken)
	}
	base := httpClient.BaseURL()
	opts := []connect.ClientOption{ballotrpc.WithJSON()}

	return &Remote{
		http:          httpClient,
		dialer:        websocket.DefaultDialer,
		listVotes:     connect.NewClient[ballotrpc.ListVotesRequest, ballotrpc.ListVotesResponse](httpClient, base+ballotrpc.VoteServiceListVotesProcedure, opts...),
		getVote:       connect.NewClient[ballotrpc.GetVoteRequest, ballotrpc.GetVoteResponse](httpClient, base+ballotrpc.VoteServiceGetVoteProcedure, opts...),
		incrementVote: connect.NewClient[ballotrpc.IncrementVoteRequest, ballotrpc.IncrementVoteResponse](httpClient, base+ballotrpc.VoteServiceIncrementVoteProcedure, opts...),
		updateVotes:   connect.NewClient[ballotrpc.UpdateVotesRequest, ballotrpc.UpdateVotesResponse](httpClient, base+ballotrpc.VoteServiceUpdateVotesProcedure, opts...),
		getSetting:    connect.NewClient[ballotrpc.GetSettingRequest, ballotrpc.GetSettingResponse](httpClient, base+ballotrpc.SettingsServiceGetSettingProcedure, opts...),
		upsertSetting: connect.NewClient[ballotrpc.UpsertSettingRequest, ballotrpc.UpsertSettingResponse](httpClient, base+ballotrpc.SettingsServiceUpsertSettingProcedure, opts...),
	}
}

// Ping checks the server health endpoint
func (r *Remote) Ping(ctx context.Context) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := r.http.GetJSON(ctx, "/health", &health); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if health.Status != "healthy" {
		return fmt.Errorf("server is %s", health.Status)
	}
	return nil
}

func (r *Remote) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	resp, err := r.listVotes.CallUnary(ctx, connect.NewRequest(&ballotrpc.ListVotesRequest{}))
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", remoteError(err))
	}
	return resp.Msg.Votes, nil
}

func (r *Remote) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	resp, err := r.getVote.CallUnary(ctx, connect.NewRequest(&ballotrpc.GetVoteRequest{CandidateID: candidateID}))
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("get vote %d: %w", candidateID, remoteError(err))
	}
	return resp.Msg.Vote, nil
}

func (r *Remote) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	resp, err := r.incrementVote.CallUnary(ctx, connect.NewRequest(&ballotrpc.IncrementVoteRequest{CandidateID: candidateID}))
	if err != nil {
		return 0, fmt.Errorf("increment vote %d: %w", candidateID, remoteError(err))
	}
	return resp.Msg.Votes, nil
}

func (r *Remote) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	resp, err := r.updateVotes.CallUnary(ctx, connect.NewRequest(&ballotrpc.UpdateVotesRequest{
		CandidateID: candidateID,
		Votes:       votes,
	}))
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("update votes %d: %w", candidateID, remoteError(err))
	}
	return resp.Msg.Vote, nil
}

func (r *Remote) GetSetting(ctx context.Context, key string) (models.Setting, error) {
	resp, err := r.getSetting.CallUnary(ctx, connect.NewRequest(&ballotrpc.GetSettingRequest{Key: key}))
	if err != nil {
		return models.Setting{}, fmt.Errorf("get setting %q: %w", key, remoteError(err))
	}
	return resp.Msg.Setting, nil
}

func (r *Remote) UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error) {
	resp, err := r.upsertSetting.CallUnary(ctx, connect.NewRequest(&ballotrpc.UpsertSettingRequest{
		Key:      key,
		Value:    value,
		Metadata: metadata,
	}))
	if err != nil {
		return models.Setting{}, fmt.Errorf("upsert setting %q: %w", key, remoteError(err))
	}
	return resp.Msg.Setting, nil
}

// Subscribe opens a websocket to /ws/changes for table and calls handler for every
// event received until Unsubscribe is called or the connection drops.
func (r *Remote) Subscribe(ctx context.Context, table string, handler ChangeHandler) (Subscription, error) {
	wsURL, err := changesURL(r.http.BaseURL(), table)
	if err != nil {
		return nil, err
	}

	conn, resp, err := r.dialer.DialContext(ctx, wsURL, r.http.Headers())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", table, err)
	}

	sub := &remoteSubscription{conn: conn, table: table, done: make(chan struct{})}
	go sub.readPump(handler)

	log.Debug().Str("table", table).Str("url", wsURL).Msg("Subscribed to change feed")
	return sub, nil
}

// changesURL converts the http(s) base URL to the ws(s) change feed URL for table
func changesURL(baseURL, table string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/changes"
	u.RawQuery = url.Values{"table": {table}}.Encode()
	return u.String(), nil
}

// remoteError maps connect status codes onto backend sentinels
func remoteError(err error) error {
	if connect.CodeOf(err) == connect.CodeNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

type remoteSubscription struct {
	conn  *websocket.Conn
	table string
	done  chan struct{}

	closeOnce sync.Once
	closing   bool
	mu        sync.Mutex
}

func (s *remoteSubscription) readPump(handler ChangeHandler) {
	defer close(s.done)

	for {
		var event models.ChangeEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("table", s.table).Msg("Change feed connection lost")
			}
			return
		}
		if event.Table != "" && event.Table != s.table {
			continue
		}
		handler(event)
	}
}

func (s *remoteSubscription) Unsubscribe() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
		<-s.done
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
