package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neptunecharge/internal/models"
)

// MsgFlagMissing is reported when phase 1 succeeds without a correlation token.
const MsgFlagMissing = "msgflag missing from phase 1 response"

// ChargeAPI is the single endpoint the handshake needs.
type ChargeAPI interface {
	BeginCharge(ctx context.Context, form url.Values) (*models.Envelope, error)
}

// ChargeInput describes one charge attempt.
type ChargeInput struct {
	Session     models.Session
	DevAddress  string
	Port        string
	BeforeMoney int64
	Device      *models.DeviceInfo
	Amount      int64
}

// ChargeService runs the two-phase request/confirm handshake. It keeps no
// state between calls.
type ChargeService struct {
	api      ChargeAPI
	defaults models.ChargeDefaults
	logger   *zap.Logger
}

// NewChargeService builds service.
func NewChargeService(api ChargeAPI, defaults models.ChargeDefaults, logger *zap.Logger) *ChargeService {
	return &ChargeService{api: api, defaults: defaults, logger: logger}
}

// BeginCharge sends phase 1, and phase 2 only when phase 1 succeeded with a
// token. The phase 2 envelope is returned as is. Transport and decode errors
// are returned as errors, never folded into a failed result.
func (s *ChargeService) BeginCharge(ctx context.Context, in ChargeInput) (*models.ChargeResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("charge: amount must be positive, got %d", in.Amount)
	}

	params := models.NewChargeParams(in.Session, in.DevAddress, in.Port, in.BeforeMoney, in.Device, in.Amount, s.defaults)
	hs := newHandshake(params)
	log := s.logger.With(
		zap.String("attempt_id", uuid.NewString()),
		zap.String("devaddress", in.DevAddress),
		zap.String("port", in.Port),
		zap.Int64("money", in.Amount),
	)

	log.Info("charge phase 1: request")
	first, err := s.api.BeginCharge(ctx, hs.form())
	if err != nil {
		return nil, fmt.Errorf("charge phase 1: %w", err)
	}

	if result := hs.accept(first); result != nil {
		log.Warn("charge phase 1 rejected", zap.String("msg", result.Msg))
		return result, nil
	}
	log.Info("charge phase 1: token received")

	log.Info("charge phase 2: confirm")
	second, err := s.api.BeginCharge(ctx, hs.form())
	if err != nil {
		return nil, fmt.Errorf("charge phase 2: %w", err)
	}

	result, err := hs.confirm(second)
	if err != nil {
		return nil, err
	}
	log.Info("charge phase 2 answered", zap.Bool("success", result.Success), zap.String("msg", result.Msg))
	return result, nil
}

type handshakeState int

const (
	stateAwaitingToken handshakeState = iota
	stateTokenReceived
	stateConfirmed
	stateFailed
)

var errHandshakeState = errors.New("charge: handshake out of order")

// handshake tracks one attempt: AwaitingToken -> TokenReceived -> Confirmed,
// or AwaitingToken -> Failed.
type handshake struct {
	state  handshakeState
	params *models.ChargeParams
}

func newHandshake(params *models.ChargeParams) *handshake {
	return &handshake{state: stateAwaitingToken, params: params}
}

func (h *handshake) form() url.Values {
	return h.params.Values()
}

// accept consumes the phase 1 envelope. A non-nil result ends the attempt.
func (h *handshake) accept(env *models.Envelope) *models.ChargeResult {
	if h.state != stateAwaitingToken {
		h.state = stateFailed
		return &models.ChargeResult{Success: false, Msg: errHandshakeState.Error(), Step: 1}
	}
	if !env.Success {
		h.state = stateFailed
		return &models.ChargeResult{Success: false, Msg: env.Msg, Obj: env.Obj, Step: 1}
	}
	token := env.Token()
	if token == "" {
		h.state = stateFailed
		return &models.ChargeResult{Success: false, Msg: MsgFlagMissing, Obj: env.Obj, Step: 1}
	}
	h.params.MsgFlag = token
	h.state = stateTokenReceived
	return nil
}

func (h *handshake) confirm(env *models.Envelope) (*models.ChargeResult, error) {
	if h.state != stateTokenReceived || h.params.MsgFlag == "" {
		return nil, errHandshakeState
	}
	h.state = stateConfirmed
	return &models.ChargeResult{Success: env.Success, Msg: env.Msg, Obj: env.Obj, Step: 2}, nil
}
