package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"go.uber.org/zap"

	"neptunecharge/internal/models"
)

type fakeChargeAPI struct {
	responses []*models.Envelope
	errs      []error
	calls     []url.Values
}

func (f *fakeChargeAPI) BeginCharge(_ context.Context, form url.Values) (*models.Envelope, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, form)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return nil, errors.New("unexpected call")
	}
	return f.responses[idx], nil
}

func envelope(t *testing.T, body string) *models.Envelope {
	t.Helper()
	env, err := models.DecodeEnvelope(200, []byte(body))
	if err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return env
}

func sampleInput() ChargeInput {
	return ChargeInput{
		Session:     models.Session{OpenID: "oid", AreaID: 42},
		DevAddress:  "50559141",
		Port:        "0",
		BeforeMoney: 500,
		Device:      &models.DeviceInfo{PortStatus: "0000"},
		Amount:      100,
	}
}

func newService(api ChargeAPI) *ChargeService {
	return NewChargeService(api, models.DefaultChargeDefaults(), zap.NewNop())
}

func TestBeginChargeConfirmsWithToken(t *testing.T) {
	api := &fakeChargeAPI{responses: []*models.Envelope{
		envelope(t, `{"success":true,"msg":"","obj":"TOK123"}`),
		envelope(t, `{"success":true,"msg":"charging started","obj":null}`),
	}}

	result, err := newService(api).BeginCharge(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("begin charge: %v", err)
	}
	if !result.Success || result.Msg != "charging started" || result.Step != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(api.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(api.calls))
	}

	first, second := api.calls[0], api.calls[1]
	if first.Has("msgflag") {
		t.Fatalf("phase 1 must not carry msgflag: %v", first)
	}
	if second.Get("msgflag") != "TOK123" {
		t.Fatalf("phase 2 msgflag = %q", second.Get("msgflag"))
	}
	for key := range first {
		if first.Get(key) != second.Get(key) {
			t.Fatalf("phase 2 changed %s: %q -> %q", key, first.Get(key), second.Get(key))
		}
	}
	if len(second) != len(first)+1 {
		t.Fatalf("phase 2 should only add msgflag: %v", second)
	}
	if first.Get("money") != "100" || first.Get("beforemoney") != "500" || first.Get("devtypeid") != "40" {
		t.Fatalf("unexpected phase 1 params %v", first)
	}
}

func TestBeginChargePhaseOneRejected(t *testing.T) {
	api := &fakeChargeAPI{responses: []*models.Envelope{
		envelope(t, `{"success":false,"msg":"insufficient permission"}`),
	}}

	result, err := newService(api).BeginCharge(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("begin charge: %v", err)
	}
	if result.Success || result.Msg != "insufficient permission" || result.Step != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(api.calls) != 1 {
		t.Fatalf("phase 2 must not be sent, got %d calls", len(api.calls))
	}
}

func TestBeginChargeMissingToken(t *testing.T) {
	for _, body := range []string{
		`{"success":true,"msg":""}`,
		`{"success":true,"msg":"","obj":""}`,
		`{"success":true,"msg":"","obj":null}`,
	} {
		api := &fakeChargeAPI{responses: []*models.Envelope{envelope(t, body)}}

		result, err := newService(api).BeginCharge(context.Background(), sampleInput())
		if err != nil {
			t.Fatalf("begin charge: %v", err)
		}
		if result.Success || result.Step != 1 || result.Msg != MsgFlagMissing {
			t.Fatalf("%s: unexpected result %+v", body, result)
		}
		if len(api.calls) != 1 {
			t.Fatalf("%s: phase 2 must not be sent, got %d calls", body, len(api.calls))
		}
	}
}

func TestBeginChargePhaseTwoFailureReturnedVerbatim(t *testing.T) {
	api := &fakeChargeAPI{responses: []*models.Envelope{
		envelope(t, `{"success":true,"obj":"TOK9"}`),
		envelope(t, `{"success":false,"msg":"port busy","obj":{"code":7}}`),
	}}

	result, err := newService(api).BeginCharge(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("begin charge: %v", err)
	}
	if result.Success || result.Msg != "port busy" || result.Step != 2 || string(result.Obj) != `{"code":7}` {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBeginChargeTransportErrors(t *testing.T) {
	boom := errors.New("connection reset")

	api := &fakeChargeAPI{errs: []error{boom}}
	if _, err := newService(api).BeginCharge(context.Background(), sampleInput()); !errors.Is(err, boom) {
		t.Fatalf("phase 1 error should propagate, got %v", err)
	}

	api = &fakeChargeAPI{
		responses: []*models.Envelope{envelope(t, `{"success":true,"obj":"TOK"}`)},
		errs:      []error{nil, boom},
	}
	result, err := newService(api).BeginCharge(context.Background(), sampleInput())
	if !errors.Is(err, boom) || result != nil {
		t.Fatalf("phase 2 error should propagate, got %+v, %v", result, err)
	}
}

func TestBeginChargeDoesNotReuseTokens(t *testing.T) {
	api := &fakeChargeAPI{responses: []*models.Envelope{
		envelope(t, `{"success":true,"obj":"TOK-A"}`),
		envelope(t, `{"success":true,"msg":"ok"}`),
		envelope(t, `{"success":true,"obj":"TOK-B"}`),
		envelope(t, `{"success":true,"msg":"ok"}`),
	}}
	svc := newService(api)

	for i := 0; i < 2; i++ {
		if _, err := svc.BeginCharge(context.Background(), sampleInput()); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if len(api.calls) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(api.calls))
	}
	if api.calls[2].Has("msgflag") {
		t.Fatalf("second attempt phase 1 carried a stale token: %v", api.calls[2])
	}
	if api.calls[1].Get("msgflag") != "TOK-A" || api.calls[3].Get("msgflag") != "TOK-B" {
		t.Fatalf("tokens mixed up: %q, %q", api.calls[1].Get("msgflag"), api.calls[3].Get("msgflag"))
	}
}

func TestBeginChargeRejectsNonPositiveAmount(t *testing.T) {
	in := sampleInput()
	in.Amount = 0
	api := &fakeChargeAPI{}
	if _, err := newService(api).BeginCharge(context.Background(), in); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if len(api.calls) != 0 {
		t.Fatalf("no call expected, got %d", len(api.calls))
	}
}

func TestHandshakeRefusesConfirmWithoutToken(t *testing.T) {
	hs := newHandshake(&models.ChargeParams{})
	if _, err := hs.confirm(&models.Envelope{Success: true}); !errors.Is(err, errHandshakeState) {
		t.Fatalf("expected errHandshakeState, got %v", err)
	}
}
