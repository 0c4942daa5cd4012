package settings

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/ballotrpc"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// SettingsApp defines what the service layer needs from the settings application
type SettingsApp interface {
	GetSetting(ctx context.Context, key string) (models.Setting, error)
	UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error)
}

// Service implements the SettingsService connect interface
type Service struct {
	app SettingsApp
}

// NewService creates a new settings service
func NewService(app SettingsApp) *Service {
	return &Service{app: app}
}

var _ ballotrpc.SettingsServiceHandler = (*Service)(nil)

func (s *Service) GetSetting(ctx context.Context, req *connect.Request[ballotrpc.GetSettingRequest]) (*connect.Response[ballotrpc.GetSettingResponse], error) {
	setting, err := s.app.GetSetting(ctx, req.Msg.Key)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.GetSettingResponse{Setting: setting}), nil
}

func (s *Service) UpsertSetting(ctx context.Context, req *connect.Request[ballotrpc.UpsertSettingRequest]) (*connect.Response[ballotrpc.UpsertSettingResponse], error) {
	setting, err := s.app.UpsertSetting(ctx, req.Msg.Key, req.Msg.Value, req.Msg.Metadata)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.UpsertSettingResponse{Setting: setting}), nil
}

// NewAdminTokenInterceptor rejects setting writes that do not carry token. An empty
// token disables the check.
func NewAdminTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" || req.Spec().IsClient || req.Spec().Procedure != ballotrpc.SettingsServiceUpsertSettingProcedure {
				return next(ctx, req)
			}
			got := req.Header().Get(ballotrpc.AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn().Str("peer", req.Peer().Addr).Msg("rejected settings write without admin token")
				return nil, connect.NewError(connect.CodePermissionDenied, errors.New("admin token required"))
			}
			return next(ctx, req)
		}
	}
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrSettingNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
