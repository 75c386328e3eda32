package clients

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"neptunecharge/internal/models"
)

const (
	pathUserInfo    = "/wxn/getUserInfo"
	pathDeviceInfo  = "/wxn/getDeviceInfo"
	pathBeginCharge = "/wxn/beginCharge"
)

// NeptuneClient talks to the vendor's WeChat web-app endpoints.
type NeptuneClient struct {
	base   *BaseClient
	logger *zap.Logger
}

// NeptuneHeaders builds the fixed header set the vendor's web page sends.
func NeptuneHeaders(baseURL, userAgent string, session models.Session) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Origin", baseURL)
	h.Set("Referer", baseURL+"/wx/indexn.html?openId="+url.QueryEscape(session.OpenID)+"&areaid="+session.AreaIDString())
	return h
}

// NewNeptuneClient returns client.
func NewNeptuneClient(baseURL, userAgent string, session models.Session, httpClient HTTPDoer, logger *zap.Logger) *NeptuneClient {
	return &NeptuneClient{
		base:   NewBaseClient(baseURL, httpClient, NeptuneHeaders(baseURL, userAgent, session)),
		logger: logger,
	}
}

// GetUserInfo fetches the account. A nil account with nil error means the
// server answered success=false.
func (c *NeptuneClient) GetUserInfo(ctx context.Context, session models.Session) (*models.AccountInfo, error) {
	form := url.Values{}
	form.Set("openId", session.OpenID)
	form.Set("areaId", session.AreaIDString())

	env, err := c.call(ctx, pathUserInfo, form)
	if err != nil || !env.Success {
		return nil, err
	}

	var account models.AccountInfo
	if err := env.DecodeObj(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetDeviceInfo fetches device state. Same nil/nil convention as GetUserInfo.
func (c *NeptuneClient) GetDeviceInfo(ctx context.Context, session models.Session, devAddress string) (*models.DeviceInfo, error) {
	form := url.Values{}
	form.Set("areaId", session.AreaIDString())
	form.Set("devaddress", devAddress)

	env, err := c.call(ctx, pathDeviceInfo, form)
	if err != nil || !env.Success {
		return nil, err
	}

	var device models.DeviceInfo
	if err := env.DecodeObj(&device); err != nil {
		return nil, err
	}
	return &device, nil
}

// BeginCharge posts one phase of the charge handshake and returns the envelope as is.
func (c *NeptuneClient) BeginCharge(ctx context.Context, form url.Values) (*models.Envelope, error) {
	return c.call(ctx, pathBeginCharge, form)
}

func (c *NeptuneClient) call(ctx context.Context, path string, form url.Values) (*models.Envelope, error) {
	status, body, err := c.base.PostForm(ctx, path, form)
	if err != nil {
		c.logger.Warn("neptune request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("neptune response", zap.String("path", path), zap.Int("status", status), zap.ByteString("body", body))

	env, err := models.DecodeEnvelope(status, body)
	if err != nil {
		c.logger.Warn("neptune response not decodable", zap.String("path", path), zap.Int("status", status), zap.ByteString("body", body))
		return nil, err
	}
	if !env.Success {
		c.logger.Warn("neptune returned success=false", zap.String("path", path), zap.String("msg", env.Msg), zap.ByteString("body", body))
	}
	return env, nil
}
