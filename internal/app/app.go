package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"neptunecharge/internal/clients"
	"neptunecharge/internal/config"
	"neptunecharge/internal/service"
)

// App wires neptune-charge dependencies.
type App struct {
	driver     *Driver
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs application graph. in and out are the operator console.
func New(cfg *config.Config, in io.Reader, out io.Writer, logger *zap.Logger) (*App, error) {
	portIndex, err := cfg.TargetPortIndex()
	if err != nil {
		return nil, fmt.Errorf("app: target port %q: %w", cfg.Target.Port, err)
	}

	session := cfg.Session()
	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())
	neptune := clients.NewNeptuneClient(cfg.Neptune.BaseURL, cfg.HTTPClient.UserAgent, session, httpClient, logger)
	chargeService := service.NewChargeService(neptune, cfg.Charge.Defaults, logger)

	driver := NewDriver(
		session,
		Target{
			DevAddress: cfg.Target.DevAddress,
			Port:       cfg.Target.Port,
			PortIndex:  portIndex,
			Amount:     cfg.Charge.Amount,
			MinBalance: cfg.Charge.MinBalance,
		},
		neptune,
		chargeService,
		NewConsoleConfirmer(in, out),
		NewReporter(out),
		logger,
	)

	return &App{
		driver:     driver,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Run performs the single charge scenario.
func (a *App) Run(ctx context.Context) (Outcome, error) {
	outcome, err := a.driver.Run(ctx)
	a.logger.Info("run finished", zap.Stringer("outcome", outcome), zap.Error(err))
	return outcome, err
}

// Close releases the shared transport.
func (a *App) Close() {
	a.httpClient.CloseIdleConnections()
}
