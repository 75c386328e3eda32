package app

import (
	"fmt"
	"io"
	"strings"

	"neptunecharge/internal/models"
)

const ruleWidth = 60

// Reporter renders operator facing progress. Write errors are ignored: the
// console is best effort and the structured log carries the same facts.
type Reporter struct {
	out io.Writer
}

// NewReporter returns reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Reporter) rule(ch string) {
	r.printf("%s\n", strings.Repeat(ch, ruleWidth))
}

// Banner prints the run header.
func (r *Reporter) Banner(devAddress, port string) {
	r.rule("=")
	r.printf("Neptune charging station - live charge test\n")
	r.rule("=")
	r.printf("Device: %s\n", devAddress)
	r.printf("Port:   %s\n\n", port)
}

// Stage announces a numbered stage.
func (r *Reporter) Stage(n int, title string) {
	r.printf("\n[%d] %s...\n", n, title)
}

// OK prints a success line.
func (r *Reporter) OK(format string, args ...any) {
	r.printf("✓ "+format+"\n", args...)
}

// Fail prints a failure line.
func (r *Reporter) Fail(format string, args ...any) {
	r.printf("✗ "+format+"\n", args...)
}

// Account prints the looked up account.
func (r *Reporter) Account(a *models.AccountInfo) {
	r.OK("User: %s", a.EmployeeID)
	r.OK("Balance: %s yuan", models.FormatMinor(a.ReadyAccountMoney))
}

// Device prints device details and a port table with the target marked.
func (r *Reporter) Device(d *models.DeviceInfo, target int) {
	r.OK("Device: %s", d.DevDescript)
	r.OK("Working hours: %s", d.WorkTime)
	r.OK("Port status: %s", d.PortStatus)
	r.printf("  Ports: %d\n\n  Port details:\n", len(d.PortStatus))
	for i, state := range d.Ports() {
		marker := ""
		if i == target {
			marker = " <-- target"
		}
		r.printf("    port %02d: %s (%s)%s\n", i, state, state.Label(), marker)
	}
}

// ConfirmationBox prints the pre-charge summary.
func (r *Reporter) ConfirmationBox(devAddress, port string, amount int64) {
	r.printf("\n")
	r.rule("!")
	r.printf("About to start charging!\n")
	r.printf("  Device: %s\n", devAddress)
	r.printf("  Port:   %s\n", port)
	r.printf("  Amount: %s yuan\n", models.FormatMinor(amount))
	r.rule("!")
}

// Result prints the final outcome of the handshake.
func (r *Reporter) Result(res *models.ChargeResult) {
	if res.Success {
		r.printf("\n")
		r.rule("=")
		r.OK("Charge started")
		r.printf("  Message: %s\n", res.Msg)
		r.rule("=")
		return
	}
	if res.Step == 1 {
		r.Fail("Charge failed: step 1 failed: %s", res.Msg)
		return
	}
	r.Fail("Charge failed: %s", res.Msg)
}
