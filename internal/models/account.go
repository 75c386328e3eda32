package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Session identifies the operator on the Neptune platform for the whole run.
type Session struct {
	OpenID string
	AreaID int
}

// AreaIDString returns the area id in its form-field representation.
func (s Session) AreaIDString() string {
	return strconv.Itoa(s.AreaID)
}

// AccountInfo is the obj of /wxn/getUserInfo.
type AccountInfo struct {
	EmployeeID FlexString `json:"employeeid"`
	// ReadyAccountMoney is in minor units (1/100 yuan).
	ReadyAccountMoney int64 `json:"readyaccountmoney"`
}

// FormatMinor renders minor currency units as a decimal major amount, e.g. 1234 -> "12.34".
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// FlexString accepts a JSON string or number; the vendor is not consistent about ids.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}
