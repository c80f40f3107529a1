package probes

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/zmap/zgrab2"
	"github.com/zmap/zgrab2/modules/banner"

	"github.com/anstrom/probeforge/internal/engine"
)

var errBannerModuleUnconfigured = errors.New("banner module failed to initialize")

// BannerResult carries the raw banner bytes zgrab2's banner module captured,
// along with the scan status it reported.
type BannerResult struct {
	Status  zgrab2.ScanStatus
	Banner  string
	TLSSeen bool
}

// BannerScanner grabs a service banner via zgrab2's banner module. If the
// module could not be initialized, Exec returns a JobErrOther error signal
// and reads nothing from the target.
type BannerScanner struct {
	scanner *banner.Scanner
	timeout time.Duration
}

// NewBannerScanner builds a scanner with zgrab2's banner module configured
// for a plaintext probe (CRLF). The timeout is stored on the scanner but is
// not passed to the banner module's flags.
func NewBannerScanner(timeout time.Duration) *BannerScanner {
	module := banner.Module{}
	flags := module.NewFlags().(*banner.Flags)
	flags.Probe = "\r\n"
	flags.MaxLength = 1024

	scanner := module.NewScanner()
	if s, ok := scanner.(*banner.Scanner); ok {
		_ = s.Init(flags)
		return &BannerScanner{scanner: s, timeout: timeout}
	}
	return &BannerScanner{timeout: timeout}
}

// Exec implements engine.Job[net.TCPAddr, BannerResult].
func (b *BannerScanner) Exec(ctx context.Context, addr net.TCPAddr) (engine.Signal[BannerResult], error) {
	if b.scanner == nil {
		return engine.ErrorSignal[BannerResult](engine.JobErr{
			Kind:  engine.JobErrOther,
			Cause: errBannerModuleUnconfigured,
		}), nil
	}

	target := zgrab2.ScanTarget{IP: addr.IP, Port: intPtr(addr.Port)}

	status, res, err := b.scanner.Scan(target)
	if err != nil {
		return engine.Classify[BannerResult](err, BannerResult{Status: status}), nil
	}

	result := BannerResult{Status: status}
	if log, ok := res.(*banner.Results); ok && log != nil {
		result.Banner = log.Banner
	}
	return engine.Success(engine.VerdictOpen, result), nil
}

func intPtr(n int) *uint16 {
	p := uint16(n)
	return &p
}
