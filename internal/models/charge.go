package models

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// ChargeDefaults are sent when the device query omits a tuning parameter.
type ChargeDefaults struct {
	DevTypeID     int64 `yaml:"devTypeId" env:"NEPTUNE_DEFAULT_DEVTYPEID"`
	SafeCharge    int64 `yaml:"safeCharge" env:"NEPTUNE_DEFAULT_SAFE_CHARGE"`
	Efee          int64 `yaml:"efee" env:"NEPTUNE_DEFAULT_EFEE"`
	ECharge       int64 `yaml:"eCharge" env:"NEPTUNE_DEFAULT_ECHARGE"`
	ServiceCharge int64 `yaml:"serviceCharge" env:"NEPTUNE_DEFAULT_SERVICE_CHARGE"`
}

// DefaultChargeDefaults returns the values documented by the vendor's web client.
func DefaultChargeDefaults() ChargeDefaults {
	return ChargeDefaults{
		DevTypeID:     40,
		SafeCharge:    9,
		Efee:          110,
		ECharge:       55,
		ServiceCharge: 55,
	}
}

// ChargeParams is the full form sent to /wxn/beginCharge. MsgFlag is empty in
// phase 1 and carries the correlation token in phase 2.
type ChargeParams struct {
	DevAddress    string
	Port          string
	Money         int64
	AreaID        int
	OpenID        string
	BeforeMoney   int64
	DevTypeID     string
	FullStop      int
	PayType       int
	SafeOpen      int
	SafeCharge    string
	EdtType       int
	Efee          string
	ECharge       string
	ServiceCharge string
	UserID        int
	Yuan7         int
	MsgFlag       string
}

// NewChargeParams merges session, target, device tuning values (falling back to
// defaults) and the fixed policy flags.
func NewChargeParams(session Session, devAddress, port string, beforeMoney int64, device *DeviceInfo, amount int64, defaults ChargeDefaults) *ChargeParams {
	if device == nil {
		device = &DeviceInfo{}
	}
	return &ChargeParams{
		DevAddress:    devAddress,
		Port:          port,
		Money:         amount,
		AreaID:        session.AreaID,
		OpenID:        session.OpenID,
		BeforeMoney:   beforeMoney,
		DevTypeID:     device.DevTypeID.Or(defaults.DevTypeID),
		FullStop:      0,
		PayType:       1,
		SafeOpen:      0,
		SafeCharge:    device.SafeCharge.Or(defaults.SafeCharge),
		EdtType:       0,
		Efee:          device.Efee.Or(defaults.Efee),
		ECharge:       device.ECharge.Or(defaults.ECharge),
		ServiceCharge: device.ServiceCharge.Or(defaults.ServiceCharge),
		UserID:        0,
		Yuan7:         0,
	}
}

// Values encodes the params as a form body. msgflag is only present once set.
func (p *ChargeParams) Values() url.Values {
	v := url.Values{}
	v.Set("devaddress", p.DevAddress)
	v.Set("port", p.Port)
	v.Set("money", strconv.FormatInt(p.Money, 10))
	v.Set("areaId", strconv.Itoa(p.AreaID))
	v.Set("openId", p.OpenID)
	v.Set("beforemoney", strconv.FormatInt(p.BeforeMoney, 10))
	v.Set("devtypeid", p.DevTypeID)
	v.Set("fullStop", strconv.Itoa(p.FullStop))
	v.Set("payType", strconv.Itoa(p.PayType))
	v.Set("safeOpen", strconv.Itoa(p.SafeOpen))
	v.Set("safeCharge", p.SafeCharge)
	v.Set("edtType", strconv.Itoa(p.EdtType))
	v.Set("efee", p.Efee)
	v.Set("eCharge", p.ECharge)
	v.Set("serviceCharge", p.ServiceCharge)
	v.Set("userId", strconv.Itoa(p.UserID))
	v.Set("yuan7", strconv.Itoa(p.Yuan7))
	if p.MsgFlag != "" {
		v.Set("msgflag", p.MsgFlag)
	}
	return v
}

// ChargeResult is the outcome of a charge attempt. Success, Msg and Obj mirror
// the server envelope; Step is the handshake phase that produced it.
type ChargeResult struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj,omitempty"`
	Step    int             `json:"step"`
}
