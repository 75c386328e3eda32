package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"neptunecharge/internal/models"
	"neptunecharge/internal/service"
)

// Outcome is how a run ended when no error escaped.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeCancelled
	OutcomeLookupFailed
	OutcomePrecondition
	OutcomeChargeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeLookupFailed:
		return "lookup_failed"
	case OutcomePrecondition:
		return "precondition_failed"
	case OutcomeChargeFailed:
		return "charge_failed"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeStarted, OutcomeCancelled:
		return 0
	default:
		return 2
	}
}

// LookupAPI is the read side of the vendor API.
type LookupAPI interface {
	GetUserInfo(ctx context.Context, session models.Session) (*models.AccountInfo, error)
	GetDeviceInfo(ctx context.Context, session models.Session, devAddress string) (*models.DeviceInfo, error)
}

// Charger starts a charge.
type Charger interface {
	BeginCharge(ctx context.Context, in service.ChargeInput) (*models.ChargeResult, error)
}

// Target is the fixed scenario of one run.
type Target struct {
	DevAddress string
	Port       string
	PortIndex  int
	Amount     int64
	MinBalance int64
}

// Driver sequences account, device, port checks, confirmation and charge.
type Driver struct {
	session   models.Session
	target    Target
	lookup    LookupAPI
	charger   Charger
	confirmer Confirmer
	report    *Reporter
	logger    *zap.Logger
}

// NewDriver builds driver.
func NewDriver(session models.Session, target Target, lookup LookupAPI, charger Charger, confirmer Confirmer, report *Reporter, logger *zap.Logger) *Driver {
	return &Driver{
		session:   session,
		target:    target,
		lookup:    lookup,
		charger:   charger,
		confirmer: confirmer,
		report:    report,
		logger:    logger,
	}
}

// Run performs one pass. Business failures come back as an Outcome with a nil
// error; transport failures come back as errors.
func (d *Driver) Run(ctx context.Context) (Outcome, error) {
	d.report.Banner(d.target.DevAddress, d.target.Port)

	d.report.Stage(1, "Fetching user info")
	account, err := d.lookup.GetUserInfo(ctx, d.session)
	if stop, err := d.checkLookup("user info", account == nil, err); stop {
		return OutcomeLookupFailed, err
	}
	d.report.Account(account)

	if account.ReadyAccountMoney < d.target.MinBalance {
		d.report.Fail("Balance below %s yuan, cannot charge", models.FormatMinor(d.target.MinBalance))
		d.logger.Info("balance gate", zap.Int64("balance", account.ReadyAccountMoney), zap.Int64("min_balance", d.target.MinBalance))
		return OutcomePrecondition, nil
	}

	d.report.Stage(2, fmt.Sprintf("Fetching device %s info", d.target.DevAddress))
	device, err := d.lookup.GetDeviceInfo(ctx, d.session, d.target.DevAddress)
	if stop, err := d.checkLookup("device info", device == nil, err); stop {
		return OutcomeLookupFailed, err
	}
	d.report.Device(device, d.target.PortIndex)

	state, err := device.PortAt(d.target.PortIndex)
	if err != nil {
		d.report.Fail("Port %s does not exist (device has %d ports)", d.target.Port, len(device.PortStatus))
		return OutcomePrecondition, nil
	}
	if state != models.PortIdle {
		d.report.Fail("Port %s is %s, cannot charge", d.target.Port, state.Label())
		d.logger.Info("port not idle", zap.String("port", d.target.Port), zap.String("state", string(state)))
		return OutcomePrecondition, nil
	}
	d.report.OK("Port %s is idle", d.target.Port)

	d.report.ConfirmationBox(d.target.DevAddress, d.target.Port, d.target.Amount)
	ok, err := d.confirmer.Confirm(ctx, "\nStart charging? (type yes to confirm): ")
	if err != nil {
		return OutcomeCancelled, fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		d.report.Fail("Cancelled")
		return OutcomeCancelled, nil
	}

	d.report.Stage(3, "Starting charge")
	result, err := d.charger.BeginCharge(ctx, service.ChargeInput{
		Session:     d.session,
		DevAddress:  d.target.DevAddress,
		Port:        d.target.Port,
		BeforeMoney: account.ReadyAccountMoney,
		Device:      device,
		Amount:      d.target.Amount,
	})
	if err != nil {
		d.report.Fail("Charge failed: %v", err)
		return OutcomeChargeFailed, fmt.Errorf("begin charge: %w", err)
	}

	d.report.Result(result)
	if !result.Success {
		return OutcomeChargeFailed, nil
	}
	return OutcomeStarted, nil
}

// checkLookup reports whether the run must stop after a query. Malformed
// payloads are lookup failures; any other error is handed back to the caller.
func (d *Driver) checkLookup(what string, missing bool, err error) (bool, error) {
	switch {
	case errors.Is(err, models.ErrMalformedResponse):
		d.report.Fail("Failed to fetch %s: %v", what, err)
		return true, nil
	case err != nil:
		d.report.Fail("Could not reach server for %s: %v", what, err)
		return true, fmt.Errorf("%s: %w", what, err)
	case missing:
		d.report.Fail("Failed to fetch %s", what)
		return true, nil
	}
	return false, nil
}
