package service

import (
	"context"
	"strings"
	"time"

	"scheduling-engine/core/cache"
	"scheduling-engine/core/constants"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/calendar/dto"
	"scheduling-engine/modules/calendar/entity"
	"scheduling-engine/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ConnectionService manages hosts' calendar connections.
type ConnectionService struct {
	repo     repository.CalendarRepository
	oauth    *oauth2.Config
	states   cache.Cache
	endpoint string
}

func NewConnectionService(repo repository.CalendarRepository, oauthCfg *oauth2.Config, states cache.Cache) *ConnectionService {
	return &ConnectionService{repo: repo, oauth: oauthCfg, states: states}
}

func (s *ConnectionService) configured() bool {
	return s.oauth != nil && s.oauth.ClientID != ""
}

// AuthURL starts the consent flow. The state it embeds is single use and
// bound to hostID.
func (s *ConnectionService) AuthURL(ctx context.Context, hostID uuid.UUID) (*dto.AuthURLResponse, error) {
	if !s.configured() {
		return nil, errors.NewAppError(errors.ErrNotFound, "google calendar is not configured", nil)
	}
	state, err := utils.NewManageToken()
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate state", err)
	}
	if err := s.states.Set(ctx, constants.RedisKeyOAuthState+state, hostID.String(), constants.OAuthStateTTL); err != nil {
		logger.Error("ConnectionService:AuthURL:SaveStateFailed", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save state", err)
	}
	url := s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &dto.AuthURLResponse{URL: url}, nil
}

func (s *ConnectionService) consumeState(ctx context.Context, hostID uuid.UUID, state string) error {
	key := constants.RedisKeyOAuthState + state
	owner, err := s.states.Get(ctx, key)
	if err != nil || owner != hostID.String() {
		return errors.NewAppError(errors.ErrInvalidInput, "state is invalid or expired", nil)
	}
	if err := s.states.Delete(ctx, key); err != nil {
		logger.Warn("ConnectionService:ConsumeState:DeleteFailed", "error", err)
	}
	return nil
}

// ConnectGoogle exchanges an authorization code and stores the tokens.
func (s *ConnectionService) ConnectGoogle(ctx context.Context, hostID uuid.UUID, req *dto.ConnectGoogleRequest) (*dto.CalendarConnectionResponse, error) {
	if !s.configured() {
		return nil, errors.NewAppError(errors.ErrNotFound, "google calendar is not configured", nil)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "code is required", nil)
	}
	if err := s.consumeState(ctx, hostID, req.State); err != nil {
		return nil, err
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		logger.Warn("ConnectionService:ConnectGoogle:ExchangeFailed", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInvalidInput, "authorization code was rejected", err)
	}

	conn := &entity.CalendarConnection{
		UserID:         hostID,
		Provider:       entity.ProviderGoogle,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: tok.Expiry,
		CalendarEmail:  s.primaryCalendarID(ctx, tok),
		IsActive:       true,
	}
	conn.ID = uuid.New()
	if err := s.repo.UpsertConnection(ctx, conn); err != nil {
		logger.Error("ConnectionService:ConnectGoogle:SaveFailed", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save calendar connection", err)
	}
	logger.Info("ConnectionService:ConnectGoogle:Success", "host_id", hostID, "calendar", conn.CalendarEmail)
	return toResponse(conn), nil
}

// primaryCalendarID returns the primary calendar's id, which Google sets to
// the account email. Lookup failures leave it blank.
func (s *ConnectionService) primaryCalendarID(ctx context.Context, tok *oauth2.Token) string {
	api, err := newAPI(ctx, s.oauth.Client(ctx, tok), s.endpoint)
	if err != nil {
		return ""
	}
	entry, err := api.CalendarList.Get(primaryCalendar).Context(ctx).Do()
	if err != nil {
		logger.Warn("ConnectionService:PrimaryCalendar:Error", "error", err)
		return ""
	}
	return entry.Id
}

func (s *ConnectionService) ListConnections(ctx context.Context, hostID uuid.UUID) ([]dto.CalendarConnectionResponse, error) {
	conns, err := s.repo.ListConnections(ctx, hostID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list calendar connections", err)
	}
	out := make([]dto.CalendarConnectionResponse, 0, len(conns))
	for i := range conns {
		out = append(out, *toResponse(&conns[i]))
	}
	return out, nil
}

func (s *ConnectionService) Disconnect(ctx context.Context, hostID uuid.UUID, provider string) error {
	if provider != entity.ProviderGoogle {
		return errors.NewAppError(errors.ErrInvalidInput, "unsupported provider", nil)
	}
	if err := s.repo.Deactivate(ctx, hostID, provider); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to disconnect calendar", err)
	}
	logger.Info("ConnectionService:Disconnect:Success", "host_id", hostID, "provider", provider)
	return nil
}

func toResponse(conn *entity.CalendarConnection) *dto.CalendarConnectionResponse {
	return &dto.CalendarConnectionResponse{
		ID:            conn.ID.String(),
		Provider:      conn.Provider,
		CalendarEmail: conn.CalendarEmail,
		IsActive:      conn.IsActive,
		ConnectedAt:   conn.CreatedAt.Format(time.RFC3339),
	}
}
